package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	ResponsesTotal.WithLabelValues("GET", "/seed", "2xx").Inc()
	ResponseDuration.WithLabelValues("GET", "/seed").Observe(0.1)
	HTTPRequestsTotal.WithLabelValues("GET", "2xx").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"bote_responses_total":           false,
		"bote_response_duration_seconds": false,
		"bote_http_requests_total":       false,
		"bote_streams_active":            false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 201: "2xx", 404: "4xx", 503: "5xx", 999: "9xx", 99: "invalid", -1: "invalid", 1000: "invalid"}
	for status, want := range tests {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestTrackerRecordsResponse(t *testing.T) {
	before := counterValue(t, ResponsesTotal, "GET", "GET /users", "2xx")
	beforeCount := histogramCount(t, ResponseDuration, "GET", "GET /users")

	m := NewMonitor(nil)
	clock := time.Unix(100, 0)
	m.now = func() time.Time { return clock }
	tr := m.Track("GET", "GET /users")
	clock = clock.Add(250 * time.Millisecond)

	if err := tr.After(context.Background(), 200); err != nil {
		t.Fatalf("After error: %v", err)
	}

	if delta := counterValue(t, ResponsesTotal, "GET", "GET /users", "2xx") - before; delta != 1 {
		t.Errorf("expected response count to increase by 1, got delta=%f", delta)
	}
	if delta := histogramCount(t, ResponseDuration, "GET", "GET /users") - beforeCount; delta != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", delta)
	}
}

func TestTrackerAcceptsOneNotification(t *testing.T) {
	before := counterValue(t, ResponsesTotal, "POST", "POST /once", "4xx")

	tr := NewMonitor(nil).Track("POST", "POST /once")
	if err := tr.After(context.Background(), 400); err != nil {
		t.Fatalf("first After error: %v", err)
	}
	if err := tr.After(context.Background(), 400); !errors.Is(err, ErrAlreadyObserved) {
		t.Errorf("second After = %v, want ErrAlreadyObserved", err)
	}

	if delta := counterValue(t, ResponsesTotal, "POST", "POST /once", "4xx") - before; delta != 1 {
		t.Errorf("expected one recorded response, got delta=%f", delta)
	}
}

// TestMiddlewareRecordsRequestCount verifies that the middleware increments
// the request counter for each served request.
func TestMiddlewareRecordsRequestCount(t *testing.T) {
	before := counterValue(t, HTTPRequestsTotal, "GET", "2xx")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/users", nil))

	if delta := counterValue(t, HTTPRequestsTotal, "GET", "2xx") - before; delta != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", delta)
	}
}

// TestMiddlewareCapturesStatusCode verifies that non-200 status codes are
// captured correctly in the status label.
func TestMiddlewareCapturesStatusCode(t *testing.T) {
	before := counterValue(t, HTTPRequestsTotal, "POST", "4xx")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/upload", nil))

	if delta := counterValue(t, HTTPRequestsTotal, "POST", "4xx") - before; delta != 1 {
		t.Errorf("expected 4xx count to increase by 1, got delta=%f", delta)
	}
}

// TestMiddlewareStreamingGauge verifies that the streams gauge increments
// while a response without Content-Length is written and decrements after.
func TestMiddlewareStreamingGauge(t *testing.T) {
	baseline := gaugeValue(t, StreamsActive)

	var during float64
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		during = gaugeValue(t, StreamsActive)
		w.Write([]byte("chunk"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/events", nil))

	if during != baseline+1 {
		t.Errorf("expected streams gauge=%f during request, got %f", baseline+1, during)
	}
	if after := gaugeValue(t, StreamsActive); after != baseline {
		t.Errorf("expected streams gauge=%f after request, got %f", baseline, after)
	}
}

func TestMiddlewareBufferedResponseIsNotStream(t *testing.T) {
	baseline := gaugeValue(t, StreamsActive)

	var during float64
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2")
		w.WriteHeader(http.StatusOK)
		during = gaugeValue(t, StreamsActive)
		w.Write([]byte("{}"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/users", nil))

	if during != baseline {
		t.Errorf("buffered response changed the streams gauge to %f", during)
	}
}

func TestStatusWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.Flush()

	if !rec.Flushed {
		t.Error("expected underlying writer to be flushed")
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// gaugeValue reads the current value of a Gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
