package adapters_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-session/adapters/gocommand"
	"github.com/goliatone/go-session/adapters/gojob"
	"github.com/goliatone/go-session/adapters/gologger"
	sessioncommand "github.com/goliatone/go-session/command"
	"github.com/goliatone/go-session/core"
)

// Login through the go-command dispatcher, queue the resulting activity on a
// go-job queue, then drain it with the consumer while every component logs
// through one glog provider.
func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}

	q := &compatQueue{}
	opts := append(gologger.ServiceOptions(provider, nil),
		core.WithTransport(core.TransportFunc(func(context.Context, core.RequestDescriptor) (core.Response, error) {
			return core.Response{StatusCode: http.StatusOK}, nil
		})),
		core.WithAuthAPI(&compatAuthAPI{}),
		core.WithActivitySink(gojob.NewQueuedActivitySink(gojob.NewEnqueuerAdapter(q))),
	)
	svc, err := core.NewService(core.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	handlers, err := gocommand.RegisterSessionHandlers(gocommand.NewBus(command.NewRegistry()), svc, nil)
	if err != nil {
		t.Fatalf("register session handlers: %v", err)
	}
	t.Cleanup(handlers.Unsubscribe)

	if err := gocommand.Dispatch(ctx, sessioncommand.LoginMessage{
		Credentials: core.Credentials{Username: "admin", Password: "secret"},
	}); err != nil {
		t.Fatalf("dispatch login: %v", err)
	}
	if !svc.State().Authenticated() {
		t.Fatalf("expected authenticated session after dispatched login")
	}
	if q.len() == 0 {
		t.Fatalf("expected login activity on the go-job queue")
	}

	jobProvider, _ := gologger.ForService(svc.Dependencies())
	if jobProvider == nil {
		t.Fatalf("expected go-job logger provider bridged from service")
	}

	drained := &compatSink{}
	consumer, err := gojob.NewActivityConsumer(
		gojob.NewDequeuerAdapter(q, gojob.RetryPolicy{MaxAttempts: 3}),
		drained,
		gojob.WithConsumerLogger(logger),
	)
	if err != nil {
		t.Fatalf("new activity consumer: %v", err)
	}
	for q.len() > 0 {
		if err := consumer.ProcessNext(ctx); err != nil {
			t.Fatalf("process queued activity: %v", err)
		}
	}

	found := false
	for _, entry := range drained.snapshot() {
		if entry.Action == core.ActivityLoginSucceeded && entry.SubjectID == "7" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected drained login activity, got %#v", drained.snapshot())
	}
	if logger.infoCount() == 0 {
		t.Fatalf("expected session core to log through the shared provider")
	}
}

type compatAuthAPI struct {
	mu       sync.Mutex
	loggedIn bool
}

func (a *compatAuthAPI) Authenticate(context.Context, core.Credentials) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loggedIn = true
	return nil
}

func (a *compatAuthAPI) Renew(context.Context) error { return nil }

func (a *compatAuthAPI) Identity(context.Context) (core.SessionIdentity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loggedIn {
		return core.SessionIdentity{}, core.UnauthenticatedError(nil)
	}
	return core.NewSessionIdentity("7", "Admin")
}

func (a *compatAuthAPI) Terminate(context.Context) error { return nil }

type compatSink struct {
	mu      sync.Mutex
	entries []core.SessionActivity
}

func (s *compatSink) Record(_ context.Context, entry core.SessionActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *compatSink) snapshot() []core.SessionActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SessionActivity(nil), s.entries...)
}

type compatQueue struct {
	mu       sync.Mutex
	messages []*job.ExecutionMessage
}

func (q *compatQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

func (q *compatQueue) Dequeue(context.Context) (queue.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return nil, context.Canceled
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	return &compatDelivery{msg: msg}, nil
}

func (q *compatQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

type compatDelivery struct {
	msg *job.ExecutionMessage
}

func (d *compatDelivery) Message() *job.ExecutionMessage                { return d.msg }
func (d *compatDelivery) Ack(context.Context) error                     { return nil }
func (d *compatDelivery) Nack(context.Context, queue.NackOptions) error { return nil }

type compatProvider struct {
	logger *compatLogger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	return p.logger
}

type compatLogger struct {
	mu    sync.Mutex
	infos int
}

func (l *compatLogger) Trace(string, ...any) {}
func (l *compatLogger) Debug(string, ...any) {}
func (l *compatLogger) Warn(string, ...any)  {}
func (l *compatLogger) Error(string, ...any) {}
func (l *compatLogger) Fatal(string, ...any) {}

func (l *compatLogger) Info(string, ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos++
}

func (l *compatLogger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *compatLogger) infoCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.infos
}
