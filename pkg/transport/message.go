package transport

import "context"

// Message types of a response cycle.
const (
	MessageResponseStart = "http.response.start"
	MessageResponseBody  = "http.response.body"
)

// Message is one protocol message. Start messages carry Status and
// Headers; body messages carry Body and MoreBody.
type Message struct {
	Type     string
	Status   int
	Headers  [][2][]byte
	Body     []byte
	MoreBody bool
}

// Transport delivers messages to the client. Send must not return before
// the message has been handed off.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// TransportFunc is an adapter that allows using an ordinary function as a
// Transport.
type TransportFunc func(ctx context.Context, msg Message) error

// Send calls f(ctx, msg).
func (f TransportFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Observer is notified once per completed response cycle with the status
// code that was sent.
type Observer interface {
	After(ctx context.Context, status int) error
}

// ObserverFunc is an adapter that allows using an ordinary function as an
// Observer.
type ObserverFunc func(ctx context.Context, status int) error

// After calls f(ctx, status).
func (f ObserverFunc) After(ctx context.Context, status int) error {
	return f(ctx, status)
}
