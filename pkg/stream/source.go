// Package stream adapts producers of body chunks into a single pull-based
// Source that a sender can drain one chunk at a time.
//
// Producers come in two flavors. Asynchronous producers (a Source or a
// channel) are consumed directly. Synchronous producers (iter.Seq and
// iter.Seq2) run in a dedicated goroutine that hands each item over a
// channel, so a slow or blocking sequence never blocks the goroutine that
// writes the response. With a buffer of 0 the goroutine pulls an item only
// when one is requested; with a buffer of n it runs at most n items ahead.
package stream

import (
	"context"
	"fmt"
	"io"
	"iter"
	"reflect"

	"github.com/rhuss/bote/pkg/api"
)

// Source yields chunk values one at a time. Next returns io.EOF when the
// producer is exhausted. A Source is consumed by a single goroutine.
type Source interface {
	Next(ctx context.Context) (any, error)

	// Close stops production and releases resources. Next returns io.EOF
	// afterwards. It is safe to call more than once.
	Close() error
}

// Adapt converts a supported producer into a Source. Supported producers
// are Source, receive channels of any element type, iter.Seq[E] and
// iter.Seq2[E, error]. Anything else fails with *api.UnsupportedTypeError.
func Adapt(producer any, opts ...Option) (Source, error) {
	switch p := producer.(type) {
	case Source:
		return p, nil
	case <-chan any:
		return FromChannel(p), nil
	case chan any:
		return FromChannel(p), nil
	case iter.Seq[any]:
		return FromSeq(p, opts...), nil
	case func(func(any) bool):
		return FromSeq(p, opts...), nil
	case iter.Seq[[]byte]:
		return FromSeq(bytesSeq(p), opts...), nil
	case func(func([]byte) bool):
		return FromSeq(bytesSeq(p), opts...), nil
	case iter.Seq2[any, error]:
		return FromSeq2(p, opts...), nil
	case func(func(any, error) bool):
		return FromSeq2(p, opts...), nil
	}
	return adaptTyped(producer, opts...)
}

var errorType = reflect.TypeFor[error]()

// adaptTyped covers producers with a concrete element type, such as
// slices.Values(events) or a chan []byte.
func adaptTyped(producer any, opts ...Option) (Source, error) {
	rv := reflect.ValueOf(producer)
	if !rv.IsValid() {
		return nil, &api.UnsupportedTypeError{TypeName: fmt.Sprintf("%T", producer)}
	}
	t := rv.Type()
	switch {
	case t.Kind() == reflect.Chan && t.ChanDir()&reflect.RecvDir != 0:
		return &typedChannelSource{ch: rv}, nil
	case t.Kind() == reflect.Func && t.CanSeq():
		seq := rv.Seq()
		return FromSeq(func(yield func(any) bool) {
			for v := range seq {
				if !yield(v.Interface()) {
					return
				}
			}
		}, opts...), nil
	case t.Kind() == reflect.Func && t.CanSeq2() && t.In(0).In(1) == errorType:
		seq := rv.Seq2()
		return FromSeq2(func(yield func(any, error) bool) {
			for v, e := range seq {
				var err error
				if e.IsValid() && !e.IsZero() {
					err, _ = e.Interface().(error)
				}
				if !yield(v.Interface(), err) {
					return
				}
			}
		}, opts...), nil
	}
	return nil, &api.UnsupportedTypeError{TypeName: t.String()}
}

func bytesSeq(seq iter.Seq[[]byte]) iter.Seq[any] {
	return func(yield func(any) bool) {
		for b := range seq {
			if !yield(b) {
				return
			}
		}
	}
}

// channelSource reads chunks from a channel until it is closed.
type channelSource struct {
	ch     <-chan any
	closed bool
}

// FromChannel returns a Source that receives from ch until ch is closed.
// The producer owns ch and must close it when done.
func FromChannel(ch <-chan any) Source {
	return &channelSource{ch: ch}
}

func (s *channelSource) Next(ctx context.Context) (any, error) {
	if s.closed {
		return nil, io.EOF
	}
	select {
	case v, ok := <-s.ch:
		if !ok {
			s.closed = true
			return nil, io.EOF
		}
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *channelSource) Close() error {
	s.closed = true
	return nil
}

// typedChannelSource receives from a channel whose element type is not any.
type typedChannelSource struct {
	ch     reflect.Value
	closed bool
}

func (s *typedChannelSource) Next(ctx context.Context) (any, error) {
	if s.closed {
		return nil, io.EOF
	}
	cases := []reflect.SelectCase{{Dir: reflect.SelectRecv, Chan: s.ch}}
	if done := ctx.Done(); done != nil {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(done)})
	}
	chosen, v, ok := reflect.Select(cases)
	if chosen == 1 {
		return nil, ctx.Err()
	}
	if !ok {
		s.closed = true
		return nil, io.EOF
	}
	return v.Interface(), nil
}

func (s *typedChannelSource) Close() error {
	s.closed = true
	return nil
}

// Collect drains src into a slice. It is mostly useful in tests.
func Collect(ctx context.Context, src Source) ([]any, error) {
	defer src.Close()
	var out []any
	for {
		v, err := src.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}
