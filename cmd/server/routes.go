package main

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/bote/pkg/api"
	"github.com/rhuss/bote/pkg/config"
	"github.com/rhuss/bote/pkg/envelope"
	"github.com/rhuss/bote/pkg/schema"
	"github.com/rhuss/bote/pkg/storage"
	"github.com/rhuss/bote/pkg/transport"
	transporthttp "github.com/rhuss/bote/pkg/transport/http"
	"github.com/rhuss/bote/pkg/value"
)

// UserOutput is the public view of a user row. The password column is not
// declared and therefore never leaves the server.
type UserOutput struct {
	ID   int64  `json:"id"`
	Name string `json:"name" alias:"username"`
}

var userSchema = schema.MustFor[UserOutput]()

const maxEvents = 1000

// registerRoutes installs the demo endpoints on a.
func registerRoutes(a *transporthttp.Adapter, store storage.UserStore, metrics config.MetricsConfig) {
	a.HandleFunc("GET /users", func(ctx context.Context, req *transport.Request) (any, error) {
		return store.ListUsers(ctx)
	}, transporthttp.WithOutputSchema(userSchema))

	a.HandleFunc("GET /users/{id}", func(ctx context.Context, req *transport.Request) (any, error) {
		id, err := strconv.ParseInt(req.Param("id"), 10, 64)
		if err != nil {
			return nil, api.NewInvalidRequestError("id", "must be numeric")
		}
		cur, err := store.FindUser(ctx, id)
		if err != nil {
			return nil, err
		}
		rows, err := value.Normalize(cur)
		if err != nil {
			return nil, err
		}
		if len(rows.Items()) == 0 {
			return nil, api.NewNotFoundError(fmt.Sprintf("user %d not found", id))
		}
		return rows.Items()[0], nil
	}, transporthttp.WithOutputSchema(userSchema))

	a.HandleFunc("GET /events", func(ctx context.Context, req *transport.Request) (any, error) {
		count, err := queryInt(req, "count", 5, maxEvents)
		if err != nil {
			return nil, err
		}
		interval := 100 * time.Millisecond
		if v := req.Query.Get("interval"); v != "" {
			interval, err = time.ParseDuration(v)
			if err != nil || interval < 0 {
				return nil, api.NewInvalidRequestError("interval", "must be a non-negative duration")
			}
		}
		return envelope.NewStream(events(count, interval), a.EnvelopeOptions()...)
	})

	a.HandleFunc("GET /hello.html", func(ctx context.Context, req *transport.Request) (any, error) {
		return envelope.HTML("<h1>Hello from bote</h1>", a.EnvelopeOptions()...)
	})

	a.HandleFunc("GET /hello.txt", func(ctx context.Context, req *transport.Request) (any, error) {
		return envelope.PlainText("Hello from bote", a.EnvelopeOptions()...)
	})

	a.HandleFunc("POST /images", func(ctx context.Context, req *transport.Request) (any, error) {
		if len(req.Body) == 0 {
			return nil, api.NewInvalidRequestError("body", "image data is required")
		}
		return envelope.New(map[string]any{
			"content_type": req.Header.Get("Content-Type"),
			"size":         len(req.Body),
		}, a.EnvelopeOptions(envelope.WithStatus(http.StatusCreated))...)
	}, transporthttp.WithAcceptedContentTypes("image/png", "image/jpeg"))

	a.Mount("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			http.Error(w, "unavailable\n", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	}))

	if metrics.Enabled {
		a.Mount("GET "+metrics.Path, promhttp.Handler())
	}
}

// events yields count numbered events, interval apart.
func events(count int, interval time.Duration) iter.Seq[any] {
	return func(yield func(any) bool) {
		for i := range count {
			if i > 0 && interval > 0 {
				time.Sleep(interval)
			}
			event := value.NewMap()
			event.Set("seq", value.Int(int64(i)))
			event.Set("of", value.Int(int64(count)))
			if !yield(event) {
				return
			}
		}
	}
}

func queryInt(req *transport.Request, name string, def, max int) (int, error) {
	v := req.Query.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > max {
		return 0, api.NewInvalidRequestError(name, fmt.Sprintf("must be an integer between 0 and %d", max))
	}
	return n, nil
}
