package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("reports_total", nil, "Reports handled")
	r.AddToCounter("reports_total", 2, nil, "Reports handled")

	all := r.GetAllMetrics()
	counters := all["counters"].(map[string]*Metric)
	require.Contains(t, counters, "reports_total")
	assert.Equal(t, float64(3), counters["reports_total"].Value)
}

func TestCounter_LabelsProduceDistinctSeries(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("http_requests_total", map[string]string{"method": "GET"}, "")
	r.IncrementCounter("http_requests_total", map[string]string{"method": "POST"}, "")

	counters := r.GetAllMetrics()["counters"].(map[string]*Metric)
	assert.Len(t, counters, 2)
}

func TestGauge_Replaces(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("sessions_active", 3, nil, "")
	r.SetGauge("sessions_active", 1, nil, "")

	gauges := r.GetAllMetrics()["gauges"].(map[string]*Metric)
	assert.Equal(t, float64(1), gauges["sessions_active"].Value)
}

func TestTimer_Aggregates(t *testing.T) {
	r := NewRegistry()

	r.RecordTimer("op_duration", 10*time.Millisecond, nil, "")
	r.RecordTimer("op_duration", 30*time.Millisecond, nil, "")

	timers := r.GetAllMetrics()["timers"].(map[string]*TimerMetric)
	timer := timers["op_duration"]
	require.NotNil(t, timer)
	assert.Equal(t, int64(2), timer.Count)
	assert.Equal(t, float64(10), timer.Min)
	assert.Equal(t, float64(30), timer.Max)
	assert.Equal(t, float64(20), timer.Average)
}

func TestMetricKey_LabelOrderStable(t *testing.T) {
	a := metricKey("m", map[string]string{"x": "1", "y": "2"})
	b := metricKey("m", map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b)
}

func TestPercentile(t *testing.T) {
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i + 1)
	}
	assert.InDelta(t, 96, percentile(samples, 0.95), 1)
	assert.InDelta(t, 100, percentile(samples, 0.99), 1)
}
