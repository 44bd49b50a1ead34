package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/rhuss/bote/pkg/api"
	"github.com/rhuss/bote/pkg/codec"
	"github.com/rhuss/bote/pkg/debug"
	"github.com/rhuss/bote/pkg/envelope"
	"github.com/rhuss/bote/pkg/transport"
)

// Monitor hands out one observer per response cycle.
type Monitor interface {
	Track(method, route string) transport.Observer
}

// Adapter serves transport handlers over HTTP. It routes requests,
// converts handler results into envelopes, and sends them through a
// ResponseTransport.
type Adapter struct {
	mux        *http.ServeMux
	sender     *transport.Sender
	middleware transport.Middleware
	inflight   *transport.InFlightRegistry
	monitor    Monitor
	logger     *slog.Logger
	config     Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize  int64
	AllowOrigin  string
	Codec        codec.Codec
	StreamBuffer int
	Monitor      Monitor
	Logger       *slog.Logger
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
		AllowOrigin: envelope.DefaultAllowOrigin,
		Codec:       codec.JSON,
	}
}

// NewAdapter creates an HTTP adapter. Middleware is applied to every
// registered handler in the given order.
//
// Besides the registered routes, the adapter serves DELETE /streams/{id},
// which cancels the in-flight stream of the request with that X-Request-ID.
func NewAdapter(cfg Config, middlewares ...transport.Middleware) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.JSON
	}
	a := &Adapter{
		mux:        http.NewServeMux(),
		sender:     transport.NewSender(cfg.Logger),
		middleware: transport.Chain(middlewares...),
		inflight:   transport.NewInFlightRegistry(),
		monitor:    cfg.Monitor,
		logger:     cfg.Logger,
		config:     cfg,
	}
	a.mux.HandleFunc("DELETE /streams/{id}", a.handleCancelStream)
	return a
}

// RouteOption configures a single route.
type RouteOption func(*route)

type route struct {
	pattern  string
	handler  transport.Handler
	params   []string
	schema   envelope.OutputSchema
	accepted []string
}

// WithOutputSchema reshapes the buffered responses of the route with
// schema before they are sent. Streams are not affected.
func WithOutputSchema(schema envelope.OutputSchema) RouteOption {
	return func(r *route) { r.schema = schema }
}

// WithAcceptedContentTypes rejects request bodies whose media type is not
// one of types with 415 Unsupported Media Type.
func WithAcceptedContentTypes(types ...string) RouteOption {
	return func(r *route) { r.accepted = append(r.accepted, types...) }
}

// Handle registers h for pattern, a net/http ServeMux pattern such as
// "GET /users/{id}".
func (a *Adapter) Handle(pattern string, h transport.Handler, opts ...RouteOption) {
	rt := &route{
		pattern: pattern,
		handler: a.middleware(h),
		params:  wildcards(pattern),
	}
	for _, opt := range opts {
		opt(rt)
	}
	a.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.serve(w, r, rt)
	}))
}

// HandleFunc registers a handler function for pattern.
func (a *Adapter) HandleFunc(pattern string, f func(ctx context.Context, req *transport.Request) (any, error), opts ...RouteOption) {
	a.Handle(pattern, transport.HandlerFunc(f), opts...)
}

// Mount registers a plain http.Handler, bypassing envelopes. It is meant
// for operational endpoints such as metrics.
func (a *Adapter) Mount(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// EnvelopeOptions returns the envelope options derived from the adapter
// configuration followed by extra. Handlers use it to build envelopes that
// match the adapter's defaults.
func (a *Adapter) EnvelopeOptions(extra ...envelope.Option) []envelope.Option {
	opts := []envelope.Option{
		envelope.WithCodec(a.config.Codec),
		envelope.WithAllowOrigin(a.config.AllowOrigin),
		envelope.WithBuffer(a.config.StreamBuffer),
	}
	return append(opts, extra...)
}

// InFlight returns the registry of streams being transmitted.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware takes the request ID from the X-Request-ID
// header, or generates one, stores it in the context and echoes it in the
// response headers.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// serve runs one response cycle for a registered route.
func (a *Adapter) serve(w http.ResponseWriter, r *http.Request, rt *route) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var obs transport.Observer
	if a.monitor != nil {
		obs = a.monitor.Track(r.Method, rt.pattern)
	}

	req, err := a.readRequest(w, r, rt)
	if err != nil {
		a.writeError(ctx, w, err, obs)
		return
	}

	result, err := rt.handler.Handle(ctx, req)
	if err != nil {
		a.writeError(ctx, w, err, obs)
		return
	}
	resp, err := transport.Respond(result, a.EnvelopeOptions()...)
	if err != nil {
		a.writeError(ctx, w, err, obs)
		return
	}

	out := NewResponseTransport(w)
	switch resp := resp.(type) {
	case *envelope.Envelope:
		if rt.schema != nil {
			if err := resp.ApplySchema(rt.schema); err != nil {
				debug.Log("schema", "output schema rejected data",
					"request_id", transport.RequestIDFromContext(ctx),
					"route", rt.pattern,
					"error", err.Error(),
				)
				a.writeError(ctx, w, err, obs)
				return
			}
		}
		err = a.sender.Send(ctx, out, resp, obs)
	case *envelope.Stream:
		err = a.sendStream(ctx, cancel, out, resp, obs)
	}

	if err == nil {
		return
	}
	if !out.Started() {
		a.writeError(ctx, w, err, obs)
		return
	}
	a.logger.LogAttrs(ctx, slog.LevelWarn, "response aborted",
		slog.String("request_id", transport.RequestIDFromContext(ctx)),
		slog.String("route", rt.pattern),
		slog.Int("status", out.Status()),
		slog.String("error", err.Error()),
	)
}

// sendStream transmits a stream while it is registered for cancellation,
// then notifies the observer once the terminal frame is out.
func (a *Adapter) sendStream(ctx context.Context, cancel context.CancelFunc, out *ResponseTransport, st *envelope.Stream, obs transport.Observer) error {
	id := transport.RequestIDFromContext(ctx)
	if id != "" {
		a.inflight.Register(id, cancel)
		defer a.inflight.Remove(id)
	}

	if err := a.sender.Send(ctx, out, st, nil); err != nil {
		return err
	}
	if obs == nil {
		return nil
	}
	return obs.After(ctx, st.StatusCode())
}

// readRequest validates the request body and builds the transport view of
// the request.
func (a *Adapter) readRequest(w http.ResponseWriter, r *http.Request, rt *route) (*transport.Request, error) {
	if len(rt.accepted) > 0 && r.ContentLength != 0 {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || !slices.Contains(rt.accepted, mediaType) {
			return nil, api.NewUnsupportedMediaTypeError("content_type",
				fmt.Sprintf("Content-Type must be one of %s", strings.Join(rt.accepted, ", ")))
		}
	}

	var body []byte
	if r.Body != nil {
		limited := r.Body
		if a.config.MaxBodySize > 0 {
			limited = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
		}
		var err error
		body, err = io.ReadAll(limited)
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				return nil, api.NewRejection(http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize))
			}
			return nil, api.NewInvalidRequestError("body", "failed to read request body: "+err.Error())
		}
	}

	params := make(map[string]string, len(rt.params))
	for _, name := range rt.params {
		params[name] = r.PathValue(name)
	}
	return &transport.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header,
		Query:  r.URL.Query(),
		Body:   body,
		Params: params,
	}, nil
}

// writeError sends the JSON error response for err. Server errors are
// logged; their details never reach the client.
func (a *Adapter) writeError(ctx context.Context, w http.ResponseWriter, err error, obs transport.Observer) {
	status := transport.StatusFromError(err)
	if status >= http.StatusInternalServerError {
		a.logger.LogAttrs(ctx, slog.LevelError, "request failed",
			slog.String("request_id", transport.RequestIDFromContext(ctx)),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}

	env, envErr := transport.ErrorEnvelope(err, envelope.WithAllowOrigin(a.config.AllowOrigin))
	if envErr == nil {
		envErr = a.sender.Send(context.WithoutCancel(ctx), NewResponseTransport(w), env, obs)
	}
	if envErr != nil {
		a.logger.LogAttrs(ctx, slog.LevelError, "failed to write error response",
			slog.String("error", envErr.Error()),
		)
	}
}

// handleCancelStream handles DELETE /streams/{id}.
func (a *Adapter) handleCancelStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if a.inflight.Cancel(id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	a.writeError(r.Context(), w, api.NewNotFoundError("no stream in flight with id "+id), nil)
}

// wildcards returns the names of the {name} and {name...} segments of a
// ServeMux pattern.
func wildcards(pattern string) []string {
	var names []string
	for _, seg := range strings.Split(pattern, "/") {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimSuffix(seg[1:len(seg)-1], "..."), "$")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
