package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/devlens/pkg/utils/metrics"
	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineMetrics(t *testing.T) {
	m := metrics.New()
	m.Read("job-a", 5)
	m.Written("job-a", 4)
	m.Skipped("job-a", 1)
	m.Retried("job-a")
	m.Finished("job-a", "COMPLETED")

	count := gt.R1(testutil.GatherAndCount(m.Gatherer(),
		"devlens_pipeline_items_read_total",
		"devlens_pipeline_runs_total",
	)).NoError(t)
	gt.V(t, count).Equal(2)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	gt.V(t, w.Code).Equal(http.StatusOK)
	body := gt.R1(io.ReadAll(w.Body)).NoError(t)
	gt.S(t, string(body)).Contains(`devlens_pipeline_items_written_total{job="job-a"} 4`)
}

func TestNilPipelineIsNoop(t *testing.T) {
	var m *metrics.Pipeline
	m.Read("job", 1)
	m.Finished("job", "FAILED")
	m.ObserveChunk("job", 0.5)
}
