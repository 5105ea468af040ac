package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-session/core"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// ActivityMessage encodes a session activity entry as a job message. The
// entry ID doubles as the idempotency key.
func ActivityMessage(entry core.SessionActivity) *core.JobExecutionMessage {
	createdAt := ""
	if !entry.CreatedAt.IsZero() {
		createdAt = entry.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return &core.JobExecutionMessage{
		JobID: JobIDActivityRecord,
		Parameters: map[string]any{
			"id":          strings.TrimSpace(entry.ID),
			"subject_id":  strings.TrimSpace(entry.SubjectID),
			"action":      strings.TrimSpace(entry.Action),
			"description": strings.TrimSpace(entry.Description),
			"status":      strings.TrimSpace(string(entry.Status)),
			"metadata":    copyAnyMap(entry.Metadata),
			"created_at":  createdAt,
		},
		IdempotencyKey: strings.TrimSpace(entry.ID),
	}
}

// ActivityFromMessage decodes a message produced by ActivityMessage.
func ActivityFromMessage(msg *core.JobExecutionMessage) (core.SessionActivity, error) {
	if msg == nil {
		return core.SessionActivity{}, fmt.Errorf("gojob: execution message is required")
	}
	if msg.JobID != JobIDActivityRecord {
		return core.SessionActivity{}, fmt.Errorf("gojob: unsupported job %q", msg.JobID)
	}
	params := msg.Parameters
	entry := core.SessionActivity{
		ID:          paramString(params, "id"),
		SubjectID:   paramString(params, "subject_id"),
		Action:      paramString(params, "action"),
		Description: paramString(params, "description"),
		Status:      core.ActivityStatus(paramString(params, "status")),
	}
	if entry.Action == "" {
		return core.SessionActivity{}, fmt.Errorf("gojob: activity action is required")
	}
	if entry.ID == "" {
		entry.ID = strings.TrimSpace(msg.IdempotencyKey)
	}
	if metadata, ok := params["metadata"].(map[string]any); ok {
		entry.Metadata = copyAnyMap(metadata)
	}
	if raw := paramString(params, "created_at"); raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return core.SessionActivity{}, fmt.Errorf("gojob: invalid activity created_at: %w", err)
		}
		entry.CreatedAt = createdAt.UTC()
	}
	return entry, nil
}

// QueuedActivitySink defers activity writes to a job queue so the session
// core never waits on the activity database.
type QueuedActivitySink struct {
	enqueuer core.JobEnqueuer
	now      func() time.Time
}

func NewQueuedActivitySink(enqueuer core.JobEnqueuer) *QueuedActivitySink {
	return &QueuedActivitySink{
		enqueuer: enqueuer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *QueuedActivitySink) Record(ctx context.Context, entry core.SessionActivity) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: queued activity sink is not configured")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	return s.enqueuer.Enqueue(ctx, ActivityMessage(entry))
}

type ConsumerOption func(*ActivityConsumer)

func WithConsumerLogger(logger glog.Logger) ConsumerOption {
	return func(c *ActivityConsumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ActivityConsumer drains queued activity into a concrete sink. Failed
// writes are nacked for retry under the delivery's RetryPolicy; messages that
// cannot be decoded are dead-lettered.
type ActivityConsumer struct {
	dequeuer core.JobDequeuer
	sink     core.ActivitySink
	logger   glog.Logger

	mu       sync.Mutex
	attempts map[string]int
}

func NewActivityConsumer(dequeuer core.JobDequeuer, sink core.ActivitySink, opts ...ConsumerOption) (*ActivityConsumer, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("gojob: activity sink is required")
	}
	consumer := &ActivityConsumer{
		dequeuer: dequeuer,
		sink:     sink,
		logger:   glog.Nop(),
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(consumer)
		}
	}
	return consumer, nil
}

// ProcessNext handles one delivery. Record failures are settled with a nack
// and do not surface as errors; only dequeue, ack and nack failures do.
func (c *ActivityConsumer) ProcessNext(ctx context.Context) error {
	delivery, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}

	entry, err := ActivityFromMessage(delivery.Message())
	if err != nil {
		c.logger.Warn("queued activity dropped", "error", err.Error())
		return delivery.Nack(ctx, core.JobNackOptions{DeadLetter: true, Reason: err.Error()})
	}

	key := entry.ID
	if err := c.sink.Record(ctx, entry); err != nil {
		attempt := c.nextAttempt(key)
		c.logger.Warn("queued activity record failed",
			"action", entry.Action,
			"attempt", attempt,
			"error", err.Error(),
		)
		requeued, err := nackForAttempt(ctx, delivery, core.JobNackOptions{
			Requeue: true,
			Reason:  err.Error(),
		}, attempt)
		if !requeued {
			c.clearAttempt(key)
		}
		return err
	}
	c.clearAttempt(key)
	return delivery.Ack(ctx)
}

// Run processes deliveries until ctx is cancelled or a queue operation fails.
func (c *ActivityConsumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("activity consumer stopped", "error", err.Error())
			return err
		}
	}
}

func (c *ActivityConsumer) nextAttempt(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[key]++
	return c.attempts[key]
}

func (c *ActivityConsumer) clearAttempt(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, key)
}

type boundedDelivery interface {
	Settle(opts core.JobNackOptions, attempt int) core.JobNackOptions
	NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error
}

// nackForAttempt nacks under the delivery's retry policy when it has one and
// reports whether the message goes back on the queue.
func nackForAttempt(ctx context.Context, delivery core.JobDelivery, opts core.JobNackOptions, attempt int) (bool, error) {
	bounded, ok := delivery.(boundedDelivery)
	if !ok {
		return opts.Requeue, delivery.Nack(ctx, opts)
	}
	requeue := bounded.Settle(opts, attempt).Requeue
	return requeue, bounded.NackForAttempt(ctx, opts, attempt)
}

func paramString(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	switch value := params[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case fmt.Stringer:
		return strings.TrimSpace(value.String())
	default:
		return ""
	}
}

var (
	_ core.ActivitySink = (*QueuedActivitySink)(nil)
)
