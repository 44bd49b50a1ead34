// Package envelope builds transmission-ready responses.
//
// An [Envelope] holds normalized data, a status code and user headers. It
// is mutable until [Envelope.Finalize] computes the body bytes and the
// header set once; after that it is read-only:
//
//	env, err := envelope.New(users, envelope.WithStatus(http.StatusOK))
//	if err != nil {
//		return err
//	}
//	if err := env.ApplySchema(schema.MustFor[UserOutput]()); err != nil {
//		return err
//	}
//	if err := env.Finalize(); err != nil {
//		return err
//	}
//
// A [Stream] carries a producer of chunks instead of buffered data.
package envelope

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/rhuss/bote/pkg/api"
	"github.com/rhuss/bote/pkg/codec"
	"github.com/rhuss/bote/pkg/value"
)

// ErrFinalized is returned when an envelope is changed after Finalize.
var ErrFinalized = errors.New("envelope already finalized")

// ErrStreamOption is returned when an option that only applies to streams
// is given to a buffered envelope.
var ErrStreamOption = errors.New("option applies to streaming responses only")

// DefaultAllowOrigin is the Access-Control-Allow-Origin value used when
// no other origin is configured.
const DefaultAllowOrigin = "*"

// Responder is a response that a sender can transmit. It is implemented
// by *Envelope and *Stream.
type Responder interface {
	StatusCode() int
	responder()
}

// OutputSchema reshapes data before it is serialized.
type OutputSchema interface {
	Enforce(v value.Value) (value.Value, error)
}

// Envelope is a buffered response.
type Envelope struct {
	status int
	data   value.Value
	format Format
	user   map[string]string
	origin string

	finalized bool
	body      []byte
	header    Header
}

// New creates an envelope whose body is serialized by the configured codec
// (JSON unless WithCodec is given). It fails with *api.InvalidStatusCodeError
// when the status is not an integer and with *api.UnsupportedTypeError when
// data cannot be normalized.
func New(data any, opts ...Option) (*Envelope, error) {
	s := newSettings(opts)
	return build(data, Serialized(s.codec), s)
}

// HTML creates an envelope labelled text/html. Data must normalize to text
// or raw bytes; anything else fails at Finalize.
func HTML(data any, opts ...Option) (*Envelope, error) {
	return build(data, Text(ContentTypeHTML), newSettings(opts))
}

// PlainText creates an envelope labelled text/plain. Data must normalize to
// text or raw bytes; anything else fails at Finalize.
func PlainText(data any, opts ...Option) (*Envelope, error) {
	return build(data, Text(ContentTypePlain), newSettings(opts))
}

func build(data any, format Format, s *settings) (*Envelope, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	if s.contentTypeSet {
		return nil, fmt.Errorf("WithContentType(%q): %w", s.contentType, ErrStreamOption)
	}
	v, err := value.Normalize(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		status: s.status,
		data:   v,
		format: format,
		user:   s.headers,
		origin: s.allowOrigin,
	}, nil
}

func (e *Envelope) responder() {}

// StatusCode returns the response status.
func (e *Envelope) StatusCode() int { return e.status }

// Data returns the normalized data.
func (e *Envelope) Data() value.Value { return e.data }

// ContentType returns the content type of the envelope's format.
func (e *Envelope) ContentType() string { return e.format.ContentType() }

// Finalized reports whether Finalize has succeeded.
func (e *Envelope) Finalized() bool { return e.finalized }

// ApplySchema replaces the data with its shape under schema. On error the
// data is left untouched.
func (e *Envelope) ApplySchema(schema OutputSchema) error {
	if e.finalized {
		return ErrFinalized
	}
	v, err := schema.Enforce(e.data)
	if err != nil {
		return err
	}
	e.data = v
	return nil
}

// Finalize computes the body and the header set. It is idempotent; a
// failed Finalize leaves the envelope unfinalized.
func (e *Envelope) Finalize() error {
	if e.finalized {
		return nil
	}
	body, err := e.format.Render(e.data)
	if err != nil {
		return err
	}
	e.body = body
	e.header = buildHeader([]Field{
		{Name: HeaderContentType, Value: e.format.ContentType()},
		{Name: HeaderContentLength, Value: strconv.Itoa(len(body))},
		{Name: HeaderAllowOrigin, Value: e.origin},
	}, e.user)
	e.finalized = true
	return nil
}

// Body returns the finalized body, or nil before Finalize.
func (e *Envelope) Body() []byte { return e.body }

// Header returns the finalized header set, or an empty set before Finalize.
func (e *Envelope) Header() Header { return e.header }

// String summarizes the envelope for logs.
func (e *Envelope) String() string {
	return fmt.Sprintf("Envelope(status_code=%d, data=%s)", e.status, summarize(e.data.String()))
}

// summarize shortens s to 27 characters plus an ellipsis when it is
// longer than 30 characters.
func summarize(s string) string {
	r := []rune(s)
	if len(r) <= 30 {
		return s
	}
	return string(r[:27]) + "..."
}

// Option configures an envelope or a stream.
type Option func(*settings)

type settings struct {
	status         int
	statusErr      error
	headers        map[string]string
	codec          codec.Codec
	allowOrigin    string
	contentType    string
	contentTypeSet bool // New, HTML and PlainText reject WithContentType
	buffer         int
}

func newSettings(opts []Option) *settings {
	s := &settings{
		status:      200,
		codec:       codec.JSON,
		allowOrigin: DefaultAllowOrigin,
		contentType: ContentTypeStream,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithStatus sets the status code. Any integer is accepted.
func WithStatus(code int) Option {
	return func(s *settings) {
		s.status = code
		s.statusErr = nil
	}
}

// WithStatusOf sets a dynamically typed status code. Values of any integer
// kind are accepted; everything else, bool included, makes construction
// fail with *api.InvalidStatusCodeError.
func WithStatusOf(code any) Option {
	return func(s *settings) {
		status, ok := integer(code)
		if !ok {
			s.statusErr = &api.InvalidStatusCodeError{Value: code}
			return
		}
		s.status = status
		s.statusErr = nil
	}
}

func integer(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < math.MinInt || i > math.MaxInt {
			return 0, false
		}
		return int(i), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt {
			return 0, false
		}
		return int(u), true
	}
	return 0, false
}

// WithHeaders adds user headers. They override computed headers of the
// same (case-sensitive) name.
func WithHeaders(headers map[string]string) Option {
	return func(s *settings) {
		for name, v := range headers {
			s.setHeader(name, v)
		}
	}
}

// WithHeader adds a single user header.
func WithHeader(name, v string) Option {
	return func(s *settings) {
		s.setHeader(name, v)
	}
}

func (s *settings) setHeader(name, v string) {
	if s.headers == nil {
		s.headers = make(map[string]string)
	}
	s.headers[name] = v
}

// WithCodec selects the serializer for New and NewStream. Nil keeps the
// default JSON codec.
func WithCodec(c codec.Codec) Option {
	return func(s *settings) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithAllowOrigin sets the computed Access-Control-Allow-Origin value.
func WithAllowOrigin(origin string) Option {
	return func(s *settings) {
		if origin != "" {
			s.allowOrigin = origin
		}
	}
}

// WithContentType sets the content type of a stream. Buffered envelopes
// take their content type from their format: New, HTML and PlainText fail
// with ErrStreamOption when given this option.
func WithContentType(contentType string) Option {
	return func(s *settings) {
		s.contentTypeSet = true
		if contentType != "" {
			s.contentType = contentType
		}
	}
}

// WithBuffer sets how many items a synchronous stream producer may run
// ahead of the consumer.
func WithBuffer(n int) Option {
	return func(s *settings) {
		s.buffer = n
	}
}
