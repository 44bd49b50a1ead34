package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rhuss/bote/pkg/envelope"
)

// Request is the transport-neutral view of an incoming request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Query  url.Values
	Body   []byte

	// Params holds the values of wildcards matched by the route pattern.
	Params map[string]string
}

// Param returns the value of the named route wildcard, or "".
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// Handler produces the response for a request. The result is either an
// *envelope.Envelope, an *envelope.Stream, or plain data that the caller
// wraps in a JSON envelope with status 200. Returning an *api.APIError
// rejects the request with that error's status.
type Handler interface {
	Handle(ctx context.Context, req *Request) (any, error)
}

// HandlerFunc is an adapter that allows using an ordinary function as a
// Handler.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Handle calls f(ctx, req).
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (any, error) {
	return f(ctx, req)
}

// Respond converts a handler result into something the Sender can
// transmit. Envelopes and streams pass through; any other value is wrapped
// with envelope.New and opts.
func Respond(result any, opts ...envelope.Option) (envelope.Responder, error) {
	switch r := result.(type) {
	case *envelope.Envelope:
		return r, nil
	case *envelope.Stream:
		return r, nil
	}
	env, err := envelope.New(result, opts...)
	if err != nil {
		return nil, err
	}
	return env, nil
}
