package gojob

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

func TestWorkerHookCountsOutcomes(t *testing.T) {
	metrics := &countingRecorder{}
	logger := &levelLogger{}
	hook := NewWorkerHook(logger, metrics)

	evt := worker.Event{
		Message:   &job.ExecutionMessage{JobID: JobIDActivityRecord},
		Attempt:   2,
		Delay:     5 * time.Second,
		Err:       errors.New("retry"),
		StartedAt: time.Now().UTC(),
		Duration:  250 * time.Millisecond,
	}
	ctx := context.Background()
	hook.OnStart(ctx, evt)
	hook.OnRetry(ctx, evt)
	hook.OnFailure(ctx, evt)
	hook.OnSuccess(ctx, evt)

	if got := metrics.count("retry"); got != 1 {
		t.Fatalf("expected one retry count, got %d", got)
	}
	if got := metrics.count("failure"); got != 1 {
		t.Fatalf("expected one failure count, got %d", got)
	}
	if got := metrics.count("success"); got != 1 {
		t.Fatalf("expected one success count, got %d", got)
	}
	if metrics.lastJobID != JobIDActivityRecord {
		t.Fatalf("expected job id tag, got %q", metrics.lastJobID)
	}
	if logger.levels["warn"] != 1 || logger.levels["error"] != 1 || logger.levels["debug"] != 2 {
		t.Fatalf("unexpected log levels: %#v", logger.levels)
	}
}

func TestWorkerHookDefaultsDependencies(t *testing.T) {
	hook := NewWorkerHook(nil, nil)
	hook.OnFailure(context.Background(), worker.Event{})
}

type countingRecorder struct {
	mu        sync.Mutex
	outcomes  map[string]int
	lastJobID string
}

func (r *countingRecorder) IncCounter(_ context.Context, name string, _ int64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name != metricActivityJobTotal {
		return
	}
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[tags["outcome"]]++
	r.lastJobID = tags["job_id"]
}

func (r *countingRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (r *countingRecorder) count(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[outcome]
}

type levelLogger struct {
	mu     sync.Mutex
	levels map[string]int
}

func (l *levelLogger) hit(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.levels == nil {
		l.levels = map[string]int{}
	}
	l.levels[level]++
}

func (l *levelLogger) Trace(string, ...any) { l.hit("trace") }
func (l *levelLogger) Debug(string, ...any) { l.hit("debug") }
func (l *levelLogger) Info(string, ...any)  { l.hit("info") }
func (l *levelLogger) Warn(string, ...any)  { l.hit("warn") }
func (l *levelLogger) Error(string, ...any) { l.hit("error") }
func (l *levelLogger) Fatal(string, ...any) { l.hit("fatal") }

func (l *levelLogger) WithContext(context.Context) glog.Logger {
	return l
}
