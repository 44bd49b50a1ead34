package stream

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"
)

// Option configures a synchronous producer adapter.
type Option func(*handoffConfig)

type handoffConfig struct {
	buffer int
}

// WithBuffer lets the producer goroutine queue up to n items the consumer
// has not asked for yet. The default, 0, pulls one item per request.
func WithBuffer(n int) Option {
	return func(c *handoffConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// item is one hand-off from the producer goroutine.
type item struct {
	v   any
	err error
}

// handoff runs a synchronous sequence in its own goroutine and forwards
// its items through a channel.
type handoff struct {
	seq    iter.Seq2[any, error]
	cfg    handoffConfig
	start  sync.Once
	stop   chan struct{}
	halt   sync.Once
	ask    chan struct{} // nil when buffered
	out    chan item
	exited chan struct{}
	done   bool
}

// FromSeq adapts a synchronous sequence into a Source.
func FromSeq(seq iter.Seq[any], opts ...Option) Source {
	return FromSeq2(func(yield func(any, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	}, opts...)
}

// FromSeq2 adapts a synchronous sequence that may fail into a Source.
// The first non-nil error ends the stream after being returned by Next.
func FromSeq2(seq iter.Seq2[any, error], opts ...Option) Source {
	h := &handoff{
		seq:    seq,
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&h.cfg)
	}
	h.out = make(chan item, h.cfg.buffer)
	if h.cfg.buffer == 0 {
		h.ask = make(chan struct{})
	}
	return h
}

func (h *handoff) run() {
	defer close(h.exited)
	defer close(h.out)
	defer func() {
		if r := recover(); r != nil {
			h.send(item{err: fmt.Errorf("stream producer panicked: %v", r)})
		}
	}()

	if !h.wait() {
		return
	}
	for v, err := range h.seq {
		if !h.send(item{v: v, err: err}) || err != nil {
			return
		}
		if !h.wait() {
			return
		}
	}
}

// wait blocks until the consumer asks for the next item. Buffered
// handoffs never wait; the channel capacity provides back-pressure.
func (h *handoff) wait() bool {
	if h.ask == nil {
		return true
	}
	select {
	case <-h.ask:
		return true
	case <-h.stop:
		return false
	}
}

func (h *handoff) send(it item) bool {
	select {
	case h.out <- it:
		return true
	case <-h.stop:
		return false
	}
}

func (h *handoff) Next(ctx context.Context) (any, error) {
	if h.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		h.Close()
		return nil, err
	}
	h.start.Do(func() { go h.run() })

	if h.ask != nil {
		select {
		case h.ask <- struct{}{}:
		case <-h.exited:
			// The producer finished; drain whatever it left behind.
		case <-ctx.Done():
			h.Close()
			return nil, ctx.Err()
		}
	}

	select {
	case it, ok := <-h.out:
		if !ok {
			h.done = true
			return nil, io.EOF
		}
		if it.err != nil {
			h.done = true
			h.Close()
			return nil, it.err
		}
		return it.v, nil
	case <-ctx.Done():
		h.Close()
		return nil, ctx.Err()
	}
}

// Close stops the producer goroutine. A sequence blocked inside its own
// code is abandoned: the goroutine exits at its next yield.
func (h *handoff) Close() error {
	h.done = true
	h.halt.Do(func() { close(h.stop) })
	return nil
}
