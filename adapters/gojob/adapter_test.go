package gojob

import (
	"context"
	"testing"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-session/core"
)

func TestExecutionMessageConversionTrimsAndCopies(t *testing.T) {
	params := map[string]any{"subject_id": "7"}
	converted := ToExecutionMessage(&core.JobExecutionMessage{
		JobID:          " " + JobIDActivityRecord + " ",
		Parameters:     params,
		IdempotencyKey: " evt-1 ",
		DedupPolicy:    "drop",
	})
	if converted.JobID != JobIDActivityRecord || converted.IdempotencyKey != "evt-1" {
		t.Fatalf("expected trimmed identifiers, got %#v", converted)
	}
	if converted.DedupPolicy != job.DeduplicationPolicy("drop") {
		t.Fatalf("expected dedup policy to carry over, got %q", converted.DedupPolicy)
	}
	params["subject_id"] = "8"
	if converted.Parameters["subject_id"] != "7" {
		t.Fatalf("expected parameters to be copied, not shared")
	}

	back := FromExecutionMessage(converted)
	if back.JobID != JobIDActivityRecord || back.Parameters["subject_id"] != "7" {
		t.Fatalf("unexpected converted session job: %#v", back)
	}
	if ToExecutionMessage(nil) != nil || FromExecutionMessage(nil) != nil {
		t.Fatalf("expected nil messages to stay nil")
	}
}

func TestEnqueueAndDequeueAdapters(t *testing.T) {
	ctx := context.Background()
	enqueuer := &stubQueueEnqueuer{}
	if err := NewEnqueuerAdapter(enqueuer).Enqueue(ctx, ActivityMessage(core.SessionActivity{
		ID:     "evt-logout",
		Action: core.ActivityLogout,
	})); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.IdempotencyKey != "evt-logout" {
		t.Fatalf("expected activity keyed by entry id, got %#v", enqueuer.last)
	}

	dequeuer := &stubQueueDequeuer{delivery: &stubQueueDelivery{msg: enqueuer.last}}
	delivery, err := NewDequeuerAdapter(dequeuer, DefaultRetryPolicy()).Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	entry, err := ActivityFromMessage(delivery.Message())
	if err != nil {
		t.Fatalf("decode dequeued activity: %v", err)
	}
	if entry.Action != core.ActivityLogout {
		t.Fatalf("unexpected dequeued activity: %#v", entry)
	}
	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !dequeuer.delivery.(*stubQueueDelivery).acked {
		t.Fatalf("expected ack on underlying delivery")
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	cases := map[int]time.Duration{
		0: time.Second,
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		4: 5 * time.Second,
		9: 5 * time.Second,
	}
	for attempt, want := range cases {
		if got := policy.Backoff(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
	if got := (RetryPolicy{}).Backoff(3); got != 0 {
		t.Fatalf("expected zero backoff without base delay, got %s", got)
	}
}

func TestDeliveryAdapterSettlesUnderPolicy(t *testing.T) {
	ctx := context.Background()
	raw := &stubQueueDelivery{msg: &job.ExecutionMessage{JobID: JobIDActivityRecord}}
	adapter := NewDeliveryAdapter(raw, RetryPolicy{
		MaxAttempts:     3,
		BaseDelay:       2 * time.Second,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	})

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{Delay: 30 * time.Second, Reason: " transient "}, 1); err != nil {
		t.Fatalf("nack attempt 1: %v", err)
	}
	if !raw.nackOpts.Requeue || raw.nackOpts.Delay != 10*time.Second || raw.nackOpts.Reason != "transient" {
		t.Fatalf("expected capped requeue, got %#v", raw.nackOpts)
	}

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{Requeue: true}, 2); err != nil {
		t.Fatalf("nack attempt 2: %v", err)
	}
	if !raw.nackOpts.Requeue || raw.nackOpts.Delay != 4*time.Second {
		t.Fatalf("expected backoff delay on second attempt, got %#v", raw.nackOpts)
	}

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{Requeue: true}, 3); err != nil {
		t.Fatalf("nack max attempt: %v", err)
	}
	if raw.nackOpts.Requeue || !raw.nackOpts.DeadLetter || raw.nackOpts.Delay != 0 {
		t.Fatalf("expected dead letter at max attempts, got %#v", raw.nackOpts)
	}
}

func TestRetryPolicyDropsWithoutDeadLetter(t *testing.T) {
	settled := RetryPolicy{MaxAttempts: 1}.Settle(core.JobNackOptions{Requeue: true}, 1)
	if settled.Requeue || settled.DeadLetter {
		t.Fatalf("expected exhausted job to be dropped, got %#v", settled)
	}
	explicit := RetryPolicy{}.Settle(core.JobNackOptions{Requeue: true, DeadLetter: true}, 1)
	if explicit.Requeue || !explicit.DeadLetter {
		t.Fatalf("expected explicit dead letter to win, got %#v", explicit)
	}
}

func TestAdaptersRequireQueue(t *testing.T) {
	ctx := context.Background()
	if err := NewEnqueuerAdapter(nil).Enqueue(ctx, &core.JobExecutionMessage{}); err == nil {
		t.Fatalf("expected missing enqueuer error")
	}
	if err := NewEnqueuerAdapter(&stubQueueEnqueuer{}).Enqueue(ctx, nil); err == nil {
		t.Fatalf("expected missing message error")
	}
	if _, err := NewDequeuerAdapter(nil, RetryPolicy{}).Dequeue(ctx); err == nil {
		t.Fatalf("expected missing dequeuer error")
	}
	if err := NewDeliveryAdapter(nil, RetryPolicy{}).Ack(ctx); err == nil {
		t.Fatalf("expected missing delivery error")
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}
