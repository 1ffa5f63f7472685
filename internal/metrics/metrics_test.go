package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveExtraction(t *testing.T) {
	m := New()
	m.ObserveExtraction("file", "ok", 40*time.Millisecond, 320*240*3)
	m.ObserveExtraction("memory", "FrameNotFound", time.Second, 0)
	m.ObserveExtraction("memory", "ok", time.Millisecond, 10)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues("FrameNotFound")))
	assert.Equal(t, float64(320*240*3+10), testutil.ToFloat64(m.ExtractedBytes))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ExtractionDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.ObserveExtraction("file", "ok", time.Second, 1) })
}

func TestHandlerExposesInstruments(t *testing.T) {
	m := New()
	m.InFlight.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "framegrab_extractions_in_flight 1")
	assert.Contains(t, string(body), "go_goroutines")
}
