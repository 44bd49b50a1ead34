package observability

import (
	"net/http"
)

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - bote_http_requests_total (counter): incremented per request with method and status class labels
//   - bote_streams_active (gauge): incremented while a response without Content-Length is in flight
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if sw.streaming {
				StreamsActive.Dec()
			}
		}()

		next.ServeHTTP(sw, r)

		HTTPRequestsTotal.WithLabelValues(r.Method, statusClass(sw.status)).Inc()
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code and
// to detect streamed responses.
type statusWriter struct {
	http.ResponseWriter
	status    int
	written   bool
	streaming bool
}

// WriteHeader captures the status code and delegates to the underlying
// writer. Buffered envelopes always announce their length, so a response
// started without Content-Length is counted as a stream.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
		if w.Header().Get("Content-Length") == "" && status != http.StatusNoContent {
			w.streaming = true
			StreamsActive.Inc()
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// and similar utilities to access the original writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
