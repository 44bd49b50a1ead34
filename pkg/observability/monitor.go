package observability

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rhuss/bote/pkg/transport"
)

// ErrAlreadyObserved is returned when a tracker is notified twice.
var ErrAlreadyObserved = errors.New("response cycle already observed")

// Monitor records response cycles as Prometheus metrics.
type Monitor struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewMonitor creates a Monitor. A nil logger uses slog.Default().
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{logger: logger, now: time.Now}
}

// Track starts observing one response cycle of route.
func (m *Monitor) Track(method, route string) transport.Observer {
	return &Tracker{
		monitor: m,
		method:  method,
		route:   route,
		start:   m.now(),
	}
}

// Tracker observes a single response cycle. It accepts exactly one After
// call.
type Tracker struct {
	monitor *Monitor
	method  string
	route   string
	start   time.Time
	done    atomic.Bool
}

// After records the cycle with the status code that was sent.
func (t *Tracker) After(ctx context.Context, status int) error {
	if !t.done.CompareAndSwap(false, true) {
		return ErrAlreadyObserved
	}
	elapsed := t.monitor.now().Sub(t.start)

	ResponsesTotal.WithLabelValues(t.method, t.route, statusClass(status)).Inc()
	ResponseDuration.WithLabelValues(t.method, t.route).Observe(elapsed.Seconds())

	t.monitor.logger.LogAttrs(ctx, slog.LevelDebug, "response observed",
		slog.String("request_id", transport.RequestIDFromContext(ctx)),
		slog.String("method", t.method),
		slog.String("route", t.route),
		slog.Int("status", status),
		slog.Duration("duration", elapsed),
	)
	return nil
}
