package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.Observe("order-expiry", 250*time.Millisecond, nil)
	m.Observe("order-expiry", 100*time.Millisecond, errors.New("db down"))
	m.Observe("", time.Millisecond, nil)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": "order-expiry", "outcome": "success"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": "order-expiry", "outcome": "failure"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	_, err = fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": "unknown", "outcome": "success"})
	assert.NoError(t, err)

	sum, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "order-expiry")
	require.NoError(t, err)
	assert.InDelta(t, 0.35, sum, 0.0001)

	assert.NotNil(t, findMetricFamily(mfs, "cron_job_last_success_timestamp_seconds"))
}

func TestJobMetricsNilSafe(t *testing.T) {
	var m *JobMetrics
	m.Observe("order-expiry", time.Second, nil)
	NewJobMetrics(nil).Observe("order-expiry", time.Second, errors.New("x"))
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q has no series %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, job string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), map[string]string{"job": job}) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q has no series for %s", name, job)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
