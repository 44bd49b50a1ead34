package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/bote/pkg/debug"
	"github.com/rhuss/bote/pkg/envelope"
)

// Sender transmits envelopes over a Transport.
type Sender struct {
	logger *slog.Logger
}

// NewSender creates a Sender. A nil logger uses slog.Default().
func NewSender(logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{logger: logger}
}

// Send transmits r over t.
//
// A buffered envelope is finalized before anything is written, so a
// serialization failure sends nothing. After its single body message the
// observer, when non-nil, is notified once.
//
// A stream sends its start message, one body message per chunk and an
// empty terminal body message. The observer is not called for streams:
// whoever owns the streaming cycle notifies it after Send returns. If the
// producer fails after the start message, the error is returned and no
// terminal message is sent.
//
// Transport errors and context cancellation stop the cycle; no further
// messages are attempted and the error is returned unchanged.
func (s *Sender) Send(ctx context.Context, t Transport, r envelope.Responder, obs Observer) error {
	switch resp := r.(type) {
	case *envelope.Envelope:
		return s.sendEnvelope(ctx, t, resp, obs)
	case *envelope.Stream:
		return s.sendStream(ctx, t, resp)
	default:
		return fmt.Errorf("unsupported responder %T", r)
	}
}

func (s *Sender) sendEnvelope(ctx context.Context, t Transport, env *envelope.Envelope, obs Observer) error {
	if err := env.Finalize(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	debug.Log("transport", "response start",
		"request_id", RequestIDFromContext(ctx),
		"status", env.StatusCode(),
		"content_type", env.ContentType(),
	)
	if err := t.Send(ctx, Message{
		Type:    MessageResponseStart,
		Status:  env.StatusCode(),
		Headers: env.Header().Pairs(),
	}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Send(ctx, Message{
		Type: MessageResponseBody,
		Body: env.Body(),
	}); err != nil {
		return err
	}

	debug.Raw("transport", string(env.Body()))

	s.logger.LogAttrs(ctx, slog.LevelDebug, "response sent",
		slog.Int("status", env.StatusCode()),
		slog.Int("bytes", len(env.Body())),
	)

	if obs == nil {
		return nil
	}
	return obs.After(ctx, env.StatusCode())
}

func (s *Sender) sendStream(ctx context.Context, t Transport, st *envelope.Stream) error {
	if err := ctx.Err(); err != nil {
		st.Close()
		return err
	}
	if err := t.Send(ctx, Message{
		Type:    MessageResponseStart,
		Status:  st.StatusCode(),
		Headers: st.Header().Pairs(),
	}); err != nil {
		st.Close()
		return err
	}

	var chunks, size int
	for chunk, err := range st.Chunks(ctx) {
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "stream aborted",
				slog.Int("chunks", chunks),
				slog.String("error", err.Error()),
			)
			return err
		}
		if err := t.Send(ctx, Message{
			Type:     MessageResponseBody,
			Body:     chunk,
			MoreBody: true,
		}); err != nil {
			return err
		}
		debug.Trace("streaming", "chunk sent",
			"request_id", RequestIDFromContext(ctx),
			"index", chunks,
			"bytes", len(chunk),
		)
		chunks++
		size += len(chunk)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Send(ctx, Message{
		Type: MessageResponseBody,
		Body: []byte{},
	}); err != nil {
		return err
	}

	s.logger.LogAttrs(ctx, slog.LevelDebug, "stream sent",
		slog.Int("status", st.StatusCode()),
		slog.Int("chunks", chunks),
		slog.Int("bytes", size),
	)
	return nil
}
