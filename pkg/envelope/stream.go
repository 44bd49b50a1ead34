package envelope

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/rhuss/bote/pkg/codec"
	"github.com/rhuss/bote/pkg/stream"
	"github.com/rhuss/bote/pkg/value"
)

// Stream is a response whose body is produced chunk by chunk. Its header
// set is known up front and never carries Content-Length.
type Stream struct {
	status   int
	src      stream.Source
	codec    codec.Codec
	header   Header
	consumed bool
}

// NewStream wraps a producer in a streaming response. Accepted producers
// are those of stream.Adapt: a stream.Source, a receive channel, or an
// iter.Seq / iter.Seq2 sequence. Sequences run in their own goroutine,
// paced by WithBuffer.
func NewStream(producer any, opts ...Option) (*Stream, error) {
	s := newSettings(opts)
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	src, err := stream.Adapt(producer, stream.WithBuffer(s.buffer))
	if err != nil {
		return nil, err
	}
	return &Stream{
		status: s.status,
		src:    src,
		codec:  s.codec,
		header: buildHeader([]Field{
			{Name: HeaderContentType, Value: s.contentType},
			{Name: HeaderAllowOrigin, Value: s.allowOrigin},
		}, s.headers),
	}, nil
}

func (s *Stream) responder() {}

// StatusCode returns the response status.
func (s *Stream) StatusCode() int { return s.status }

// Header returns the header set.
func (s *Stream) Header() Header { return s.header }

// Chunks yields the encoded body chunks in production order. Raw bytes are
// passed through, nil becomes an empty chunk, and any other item is
// normalized and serialized with the stream's codec. The producer is
// consumed once: later calls yield nothing. The source is closed when the
// iteration ends, including when the caller stops early.
func (s *Stream) Chunks(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if s.consumed {
			return
		}
		s.consumed = true
		defer s.src.Close()

		for {
			item, err := s.src.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			chunk, err := s.encode(item)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (s *Stream) encode(item any) ([]byte, error) {
	switch c := item.(type) {
	case nil:
		return []byte{}, nil
	case []byte:
		return c, nil
	}
	v, err := value.Normalize(item)
	if err != nil {
		return nil, err
	}
	switch v.Kind() {
	case value.KindBytes:
		return v.Bytes(), nil
	case value.KindNull:
		return []byte{}, nil
	}
	chunk, err := s.codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding stream chunk: %w", err)
	}
	return chunk, nil
}

// Close releases the producer without consuming it.
func (s *Stream) Close() error {
	s.consumed = true
	return s.src.Close()
}

// String summarizes the stream for logs.
func (s *Stream) String() string {
	return fmt.Sprintf("Stream(status_code=%d)", s.status)
}
