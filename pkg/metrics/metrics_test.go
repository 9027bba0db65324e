package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTags(t *testing.T) {
	keys, values := splitTags([]string{"status:ok", "stage:preprocess", "bare"})

	assert.Equal(t, []string{"bare", "stage", "status"}, keys)
	assert.Equal(t, []string{"", "preprocess", "ok"}, values)
}

func TestPromName(t *testing.T) {
	assert.Equal(t, "modelgateway_pipeline_stage_total", promName("modelgateway.pipeline.stage.total"))
	assert.Equal(t, "model_id", promName("model-id"))
}

func TestCountIsMirroredToPrometheus(t *testing.T) {
	Count("test.count.mirror", 2, []string{"status:ok"})
	Count("test.count.mirror", 3, []string{"status:ok"})

	vec := counters["test.count.mirror"]
	require.NotNil(t, vec)
	assert.Equal(t, float64(5), testutil.ToFloat64(vec.vec.WithLabelValues("ok")))
}

func TestMismatchedLabelsAreSkipped(t *testing.T) {
	Count("test.count.labels", 1, []string{"status:ok"})
	Count("test.count.labels", 1, []string{"status:ok", "stage:rpc"})

	vec := counters["test.count.labels"]
	require.NotNil(t, vec)
	assert.Equal(t, float64(1), testutil.ToFloat64(vec.vec.WithLabelValues("ok")))
}

func TestTimingRegistersHistogram(t *testing.T) {
	Timing("test.timing.latency", 15*time.Millisecond, []string{"stage:rpc"})

	families, err := Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, family := range families {
		if family.GetName() == "test_timing_latency_seconds" {
			found = true
			assert.Equal(t, uint64(1), family.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found)
}
