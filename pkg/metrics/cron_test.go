package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "exchange-rates-refresh"
	finished := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job, finished)
	m.IncFailure(job)
	m.IncSkipped(job)
	m.IncSkipped(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for outcome, want := range map[string]float64{"success": 1, "failure": 1, "skipped": 2} {
		got, err := fetchCounterValue(mfs, "cron_job_runs_total", "job", job, "outcome", outcome)
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != want {
			t.Fatalf("expected %s=%v, got %v", outcome, want, got)
		}
	}
	if got, err := fetchGaugeValue(mfs, "cron_job_last_success_timestamp_seconds", "job", job); err != nil {
		t.Fatalf("fetch last success: %v", err)
	} else if got != float64(finished.Unix()) {
		t.Fatalf("expected last success %d, got %v", finished.Unix(), got)
	}
	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 0.25 {
		t.Fatalf("expected duration sum 0.25, got %v", got)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveDuration("job", time.Second)
	m.IncSuccess("job", time.Now())
	NewCronJobMetrics(nil).IncSkipped("job")
}

// fetchCounterValue finds the counter in name whose labels match every name/value pair.
func fetchCounterValue(mfs []*dto.MetricFamily, name string, pairs ...string) (float64, error) {
	metric, err := findMetric(mfs, name, pairs)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name string, pairs ...string) (float64, error) {
	metric, err := findMetric(mfs, name, pairs)
	if err != nil {
		return 0, err
	}
	return metric.GetGauge().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, pairs ...string) (float64, error) {
	metric, err := findMetric(mfs, name, pairs)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findMetric(mfs []*dto.MetricFamily, name string, pairs []string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric.GetLabel(), pairs) {
				return metric, nil
			}
		}
		return nil, fmt.Errorf("metric %q missing labels %v", name, pairs)
	}
	return nil, fmt.Errorf("metric %q not found", name)
}

func matchesLabels(labels []*dto.LabelPair, pairs []string) bool {
	for i := 0; i+1 < len(pairs); i += 2 {
		found := false
		for _, label := range labels {
			if label.GetName() == pairs[i] && label.GetValue() == pairs[i+1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
