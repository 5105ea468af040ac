package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type RefreshPhase int

const (
	RefreshIdle RefreshPhase = iota
	RefreshRefreshing
)

func (p RefreshPhase) String() string {
	switch p {
	case RefreshIdle:
		return "idle"
	case RefreshRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("refresh_phase(%d)", int(p))
	}
}

// Waiter is a request suspended behind an in-flight renewal. It is resumed
// exactly once with nil (replay now) or the renewal error.
type Waiter struct {
	seq  uint64
	done chan error
}

func newWaiter(seq uint64) *Waiter {
	return &Waiter{seq: seq, done: make(chan error, 1)}
}

// Seq is the arrival order of the waiter across the coordinator lifetime.
func (w *Waiter) Seq() uint64 {
	if w == nil {
		return 0
	}
	return w.seq
}

func (w *Waiter) resume(err error) {
	w.done <- err
}

// RefreshState is owned by RefreshCoordinator. Phase is RefreshRefreshing iff a
// renewal call is outstanding.
type RefreshState struct {
	Phase   RefreshPhase
	Waiters []*Waiter
}

type RefreshHooks struct {
	// OnRejected runs after the phase returns to idle and before any waiter
	// resumes.
	OnRejected func(ctx context.Context, err error)
	OnRenewed  func(ctx context.Context)
}

// RefreshCoordinator guarantees at most one renewal in flight. Callers that
// observe an eligible unauthorized response while a renewal runs queue behind it
// and resume in arrival order once it settles.
type RefreshCoordinator struct {
	renew   RenewFunc
	timeout time.Duration
	hooks   RefreshHooks
	obs     *observer

	mu    sync.Mutex
	state RefreshState
	seq   uint64
}

func NewRefreshCoordinator(renew RenewFunc, timeout time.Duration, hooks RefreshHooks) *RefreshCoordinator {
	if timeout <= 0 {
		timeout = DefaultRenewalTimeout
	}
	return &RefreshCoordinator{
		renew:   renew,
		timeout: timeout,
		hooks:   hooks,
		state:   RefreshState{Phase: RefreshIdle},
	}
}

// Await queues the caller behind the current renewal, starting one when the
// coordinator is idle. It returns nil when the caller should replay its
// request, the renewal error when renewal failed, or the context error when
// ctx ends first. Cancelling ctx never cancels the renewal itself.
func (c *RefreshCoordinator) Await(ctx context.Context) error {
	if c == nil || c.renew == nil {
		return RenewalRejectedError(internalError("core: refresh coordinator is not configured"), RenewalReasonRejected)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	c.seq++
	waiter := newWaiter(c.seq)
	c.state.Waiters = append(c.state.Waiters, waiter)
	start := c.state.Phase == RefreshIdle
	if start {
		c.state.Phase = RefreshRefreshing
	}
	c.mu.Unlock()

	if start {
		go c.run(context.WithoutCancel(ctx))
	}

	select {
	case err := <-waiter.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current refresh state.
func (c *RefreshCoordinator) Snapshot() RefreshState {
	if c == nil {
		return RefreshState{Phase: RefreshIdle}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := RefreshState{Phase: c.state.Phase}
	if len(c.state.Waiters) > 0 {
		out.Waiters = append([]*Waiter(nil), c.state.Waiters...)
	}
	return out
}

func (c *RefreshCoordinator) run(ctx context.Context) {
	startedAt := c.obs.now()
	c.obs.logDebug(ctx, "session renewal started", map[string]any{"timeout_ms": c.timeout.Milliseconds()})

	err := c.callRenew(ctx)

	c.mu.Lock()
	waiters := c.state.Waiters
	c.state = RefreshState{Phase: RefreshIdle}
	c.mu.Unlock()

	status := "success"
	if err != nil {
		status = "rejected"
	}
	elapsed := c.obs.now().Sub(startedAt)
	tags := map[string]string{"status": status}
	c.obs.recordCounter(ctx, metricRenewalTotal, 1, tags)
	c.obs.recordHistogram(ctx, metricRenewalDurationMS, float64(elapsed.Milliseconds()), tags)
	c.obs.recordHistogram(ctx, metricRenewalWaiters, float64(len(waiters)), tags)

	fields := map[string]any{
		"waiters":     len(waiters),
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		fields["reason"] = renewalReason(err)
		c.obs.logWarn(ctx, "session renewal rejected", fields)
		if c.hooks.OnRejected != nil {
			c.hooks.OnRejected(ctx, err)
		}
	} else {
		c.obs.logInfo(ctx, "session renewal succeeded", fields)
		if c.hooks.OnRenewed != nil {
			c.hooks.OnRenewed(ctx)
		}
	}

	for _, waiter := range waiters {
		c.obs.logDebug(ctx, "session waiter resumed", map[string]any{
			"seq":    waiter.seq,
			"status": status,
		})
		waiter.resume(err)
	}
}

// callRenew bounds the renewal with the configured timeout even when the
// renew function ignores its context.
func (c *RefreshCoordinator) callRenew(ctx context.Context) error {
	renewCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				result <- internalError(fmt.Sprintf("core: renewal panicked: %v", recovered))
			}
		}()
		result <- c.renew(renewCtx)
	}()

	select {
	case err := <-result:
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return RenewalRejectedError(err, RenewalReasonTimeout)
		}
		return RenewalRejectedError(err, RenewalReasonRejected)
	case <-renewCtx.Done():
		return RenewalRejectedError(renewCtx.Err(), RenewalReasonTimeout)
	}
}

func renewalReason(err error) string {
	if err == nil {
		return ""
	}
	if meta := errorMetadata(err); meta != nil {
		if reason, ok := meta["reason"].(string); ok && reason != "" {
			return reason
		}
	}
	return RenewalReasonRejected
}
