package core

import "context"

const (
	metricRenewalTotal      = "session.renewal.total"
	metricRenewalDurationMS = "session.renewal.duration_ms"
	metricRenewalWaiters    = "session.renewal.waiters"
	metricRequestTotal      = "session.request.total"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

type NopActivitySink struct{}

func (NopActivitySink) Record(context.Context, SessionActivity) error { return nil }

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}
