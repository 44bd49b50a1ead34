package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/bote/pkg/transport"
)

// writerState tracks the progress of a response cycle.
type writerState int

const (
	writerIdle      writerState = iota // no message yet
	writerStarted                      // start message written
	writerCompleted                    // final body message written
)

// ResponseTransport implements transport.Transport over an
// http.ResponseWriter. The start message becomes the status line and
// headers, body messages are written in order, and the writer is flushed
// after every body message that announces more body.
type ResponseTransport struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu     sync.Mutex
	state  writerState
	status int
}

var _ transport.Transport = (*ResponseTransport)(nil)

// NewResponseTransport creates a transport writing to w.
func NewResponseTransport(w http.ResponseWriter) *ResponseTransport {
	return &ResponseTransport{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// Send writes one message.
func (t *ResponseTransport) Send(ctx context.Context, msg transport.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch msg.Type {
	case transport.MessageResponseStart:
		return t.start(msg)
	case transport.MessageResponseBody:
		return t.body(msg)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (t *ResponseTransport) start(msg transport.Message) error {
	if t.state != writerIdle {
		return errors.New("cannot start response: already started")
	}
	// net/http panics on status codes outside the three-digit range.
	if msg.Status < 100 || msg.Status > 999 {
		return fmt.Errorf("status code %d cannot be written over HTTP", msg.Status)
	}

	h := t.w.Header()
	for _, pair := range msg.Headers {
		// Names are written as given, not canonicalized.
		h[string(pair[0])] = []string{string(pair[1])}
	}
	t.w.WriteHeader(msg.Status)
	t.status = msg.Status
	t.state = writerStarted
	return nil
}

func (t *ResponseTransport) body(msg transport.Message) error {
	switch t.state {
	case writerIdle:
		return errors.New("cannot write body: response not started")
	case writerCompleted:
		return errors.New("cannot write body: response is complete")
	}

	if len(msg.Body) > 0 {
		if _, err := t.w.Write(msg.Body); err != nil {
			return fmt.Errorf("failed to write body: %w", err)
		}
	}
	if !msg.MoreBody {
		t.state = writerCompleted
		return nil
	}
	if err := t.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// Started reports whether the start message has been written.
func (t *ResponseTransport) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != writerIdle
}

// Completed reports whether the final body message has been written.
func (t *ResponseTransport) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == writerCompleted
}

// Status returns the status code written by the start message, or 0.
func (t *ResponseTransport) Status() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}
