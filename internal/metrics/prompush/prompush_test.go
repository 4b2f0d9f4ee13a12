package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballetl/internal/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	require.NotNil(t, m.GetCounter())
	return m.GetCounter().GetValue()
}

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := NewBackend("footballetl", "http://example.com")
	require.NoError(t, err)
	return b
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("job", "")
	assert.Error(t, err)

	b, err := NewBackend("", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "footballetl", b.jobName)

	b, err = NewBackend("nightly", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "nightly", b.jobName)
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	b.IncCounter(metrics.StepTotal, 3, metrics.Labels{"step": "fetch", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 380, metrics.Labels{"kind": "inserted"})
	b.IncCounter(metrics.BatchesTotal, 2, nil)
	b.IncCounter(metrics.BatchesTotal, 0.5, nil)
	b.IncCounter(metrics.DeletedRowTotal, 10, metrics.Labels{"season": "2425"})
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	assert.Equal(t, 3.0, counterValue(t, b.stepCounter.WithLabelValues("fetch", "success")))
	assert.Equal(t, 380.0, counterValue(t, b.rowCounter.WithLabelValues("inserted")))
	assert.Equal(t, 2.5, counterValue(t, b.batchCounter))
	assert.Equal(t, 10.0, counterValue(t, b.deletedCounter.WithLabelValues("2425")))
	assert.Equal(t, 0.0, counterValue(t, b.stepCounter.WithLabelValues("x", "y")))
}

func TestNilCollectorsAreIgnored(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	assert.NotPanics(t, func() {
		b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
		b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "inserted"})
		b.IncCounter(metrics.BatchesTotal, 1, nil)
		b.IncCounter(metrics.DeletedRowTotal, 1, metrics.Labels{"season": "2425"})
		b.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{})
	})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	b.ObserveHistogram(metrics.StepDuration, 1.5, metrics.Labels{"step": "load", "status": "success"})
	b.ObserveHistogram("other_metric", 2.0, metrics.Labels{"step": "load", "status": "success"})

	m := &dto.Metric{}
	obs, ok := b.stepDuration.WithLabelValues("load", "success").(prometheus.Metric)
	require.True(t, ok)
	require.NoError(t, obs.Write(m))
	assert.Equal(t, uint64(1), m.GetSummary().GetSampleCount())
	assert.Equal(t, 1.5, m.GetSummary().GetSampleSum())
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method string
		path   string
		size   int
	}
	reqs := make(chan pushed, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs <- pushed{r.Method, r.URL.Path, len(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("footballetl", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "ingest", "status": "success"})
	require.NoError(t, b.Flush())

	got := <-reqs
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/metrics/job/footballetl", got.path)
	assert.Positive(t, got.size)
}

func TestFlushReportsGatewayErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("footballetl", srv.URL)
	require.NoError(t, err)
	assert.Error(t, b.Flush())
}
