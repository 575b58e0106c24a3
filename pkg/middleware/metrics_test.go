package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectMetric returns the first metric of c whose labels include labels.
func collectMetric(c prometheus.Collector, labels map[string]string) *dto.Metric {
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		got := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return d
		}
	}
	return nil
}

func serveWithChi(mw func(http.Handler) http.Handler, pattern string, handler http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mw)
	r.Get(pattern, handler)
	return r
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	handler := serveWithChi(PrometheusMetrics("count-svc"), "/image-manager/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/image-manager/"+id, nil))
	}

	m := collectMetric(httpRequestsTotal, map[string]string{
		"service": "count-svc", "method": "GET", "path": "/image-manager/{id}", "status": "404",
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(3), m.GetCounter().GetValue())
}

func TestPrometheusMetrics_DefaultStatusAndSize(t *testing.T) {
	handler := serveWithChi(PrometheusMetrics("size-svc"), "/products", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products", nil))

	require.NotNil(t, collectMetric(httpRequestsTotal, map[string]string{"service": "size-svc", "status": "200"}))

	size := collectMetric(httpResponseSize, map[string]string{"service": "size-svc"})
	require.NotNil(t, size)
	assert.Equal(t, float64(len(`{"success":true}`)), size.GetHistogram().GetSampleSum())
}

func TestPrometheusMetrics_InFlightGauge(t *testing.T) {
	seen := float64(-1)
	handler := serveWithChi(PrometheusMetrics("inflight-svc"), "/test", func(w http.ResponseWriter, r *http.Request) {
		if m := collectMetric(httpRequestsInFlight, map[string]string{"service": "inflight-svc"}); m != nil {
			seen = m.GetGauge().GetValue()
		}
	})
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, float64(1), seen)
	m := collectMetric(httpRequestsInFlight, map[string]string{"service": "inflight-svc"})
	require.NotNil(t, m)
	assert.Equal(t, float64(0), m.GetGauge().GetValue())
}

// --- statusRecorder ---

type flushHijackWriter struct {
	http.ResponseWriter
	flushed  bool
	hijacked bool
}

func (m *flushHijackWriter) Flush() { m.flushed = true }

func (m *flushHijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	m.hijacked = true
	return nil, nil, nil
}

type bareWriter struct{ header http.Header }

func (m *bareWriter) Header() http.Header {
	if m.header == nil {
		m.header = make(http.Header)
	}
	return m.header
}
func (m *bareWriter) Write(b []byte) (int, error) { return len(b), nil }
func (m *bareWriter) WriteHeader(int)             {}

func TestStatusRecorder_FirstWriteHeaderWins(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusCreated, rec.status)
}

func TestStatusRecorder_ReusesExisting(t *testing.T) {
	inner := newStatusRecorder(httptest.NewRecorder())
	assert.Same(t, inner, newStatusRecorder(inner))
}

func TestStatusRecorder_Delegation(t *testing.T) {
	under := &flushHijackWriter{ResponseWriter: httptest.NewRecorder()}
	rec := newStatusRecorder(under)

	rec.Flush()
	_, _, err := rec.Hijack()

	assert.NoError(t, err)
	assert.True(t, under.flushed)
	assert.True(t, under.hijacked)
	assert.Equal(t, under, rec.Unwrap())
}

func TestStatusRecorder_HijackNotSupported(t *testing.T) {
	rec := newStatusRecorder(&bareWriter{})
	rec.Flush()

	_, _, err := rec.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)
}
