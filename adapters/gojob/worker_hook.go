package gojob

import (
	"context"
	"strconv"

	"github.com/goliatone/go-session/core"

	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const metricActivityJobTotal = "session.activity.job.total"

// WorkerHook reports go-job worker lifecycle events for session jobs through
// glog and the session metrics recorder.
type WorkerHook struct {
	logger  glog.Logger
	metrics core.MetricsRecorder
}

func NewWorkerHook(logger glog.Logger, metrics core.MetricsRecorder) *WorkerHook {
	if logger == nil {
		logger = glog.Nop()
	}
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &WorkerHook{logger: logger, metrics: metrics}
}

func (h *WorkerHook) OnStart(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.logger.WithContext(ctx).Debug("session job started", eventArgs(event)...)
}

func (h *WorkerHook) OnSuccess(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.count(ctx, event, "success")
	h.logger.WithContext(ctx).Debug("session job succeeded", eventArgs(event)...)
}

func (h *WorkerHook) OnFailure(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.count(ctx, event, "failure")
	h.logger.WithContext(ctx).Error("session job failed", eventArgs(event)...)
}

func (h *WorkerHook) OnRetry(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.count(ctx, event, "retry")
	h.logger.WithContext(ctx).Warn("session job retrying", eventArgs(event)...)
}

func (h *WorkerHook) count(ctx context.Context, event worker.Event, outcome string) {
	h.metrics.IncCounter(ctx, metricActivityJobTotal, 1, map[string]string{
		"job_id":  eventJobID(event),
		"outcome": outcome,
	})
}

func eventJobID(event worker.Event) string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message == nil {
		return ""
	}
	return message.JobID
}

func eventArgs(event worker.Event) []any {
	args := []any{
		"job_id", eventJobID(event),
		"attempt", strconv.Itoa(event.Attempt),
	}
	if event.Delay > 0 {
		args = append(args, "delay", event.Delay.String())
	}
	if event.Duration > 0 {
		args = append(args, "duration", event.Duration.String())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}
	return args
}

var _ worker.Hook = (*WorkerHook)(nil)
