package core

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend simulates a server holding one cookie session. Protected and
// identity calls answer 401 while the session is expired.
type fakeBackend struct {
	mu            sync.Mutex
	password      string
	subject       string
	role          string
	loggedIn      bool
	expired       bool
	refreshValid  bool
	alwaysDeny    bool
	transportDown bool
	identityEmpty bool
	terminateFail bool
	calls         []RequestDescriptor

	renewCalls   atomic.Int32
	renewGate    chan struct{}
	renewStarted chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		password:     "secret",
		subject:      "7",
		role:         "Admin",
		refreshValid: true,
	}
}

func (b *fakeBackend) Do(ctx context.Context, req RequestDescriptor) (Response, error) {
	if req.Endpoint == EndpointRenew {
		return b.renew(ctx, req)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, req)
	if b.transportDown {
		return Response{}, errors.New("dial tcp: connection refused")
	}

	switch req.Endpoint {
	case EndpointAuthenticate:
		form, _ := url.ParseQuery(string(req.Body))
		if form.Get("password") != b.password {
			return Response{StatusCode: http.StatusUnauthorized}, nil
		}
		b.loggedIn = true
		b.expired = false
		return Response{StatusCode: http.StatusOK}, nil
	case EndpointTerminate:
		b.loggedIn = false
		if b.terminateFail {
			return Response{StatusCode: http.StatusInternalServerError}, nil
		}
		return Response{StatusCode: http.StatusOK}, nil
	}

	if !b.loggedIn || b.expired || b.alwaysDeny {
		return Response{StatusCode: http.StatusUnauthorized}, nil
	}
	if req.Endpoint == EndpointIdentity {
		if b.identityEmpty {
			return Response{StatusCode: http.StatusOK, Body: []byte("|")}, nil
		}
		return Response{StatusCode: http.StatusOK, Body: []byte(b.subject + "|" + b.role)}, nil
	}
	if req.Path == "/missing" {
		return Response{StatusCode: http.StatusNotFound}, nil
	}
	return Response{StatusCode: http.StatusOK, Body: []byte("ok:" + req.Path)}, nil
}

func (b *fakeBackend) renew(ctx context.Context, req RequestDescriptor) (Response, error) {
	b.renewCalls.Add(1)
	b.mu.Lock()
	b.calls = append(b.calls, req)
	started := b.renewStarted
	gate := b.renewGate
	b.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.transportDown {
		return Response{}, errors.New("dial tcp: connection refused")
	}
	if !b.refreshValid {
		return Response{StatusCode: http.StatusUnauthorized}, nil
	}
	b.expired = false
	return Response{StatusCode: http.StatusOK}, nil
}

func (b *fakeBackend) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expired = true
}

func (b *fakeBackend) update(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) callCount(endpoint Endpoint) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, call := range b.calls {
		if call.Endpoint == endpoint {
			count++
		}
	}
	return count
}

// fakeAuthAPI speaks the backend's wire shape: form login and "sub|role"
// identity bodies.
type fakeAuthAPI struct {
	calls    Transport
	renewals Transport
}

func (a *fakeAuthAPI) Authenticate(ctx context.Context, credentials Credentials) error {
	form := url.Values{}
	form.Set("username", credentials.Username)
	form.Set("password", credentials.Password)
	_, err := a.calls.Do(ctx, RequestDescriptor{
		Endpoint: EndpointAuthenticate,
		Method:   http.MethodPost,
		Path:     "/login",
		Body:     []byte(form.Encode()),
	})
	return err
}

func (a *fakeAuthAPI) Renew(ctx context.Context) error {
	res, err := a.renewals.Do(ctx, RequestDescriptor{Endpoint: EndpointRenew, Method: http.MethodPost, Path: "/refresh"})
	if err != nil {
		return RenewalRejectedError(err, RenewalReasonRejected)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return RenewalRejectedError(nil, RenewalReasonRejected)
	}
	return nil
}

func (a *fakeAuthAPI) Identity(ctx context.Context) (SessionIdentity, error) {
	res, err := a.calls.Do(ctx, RequestDescriptor{Endpoint: EndpointIdentity, Method: http.MethodGet, Path: "/me"})
	if err != nil {
		return SessionIdentity{}, UnauthenticatedError(err)
	}
	parts := strings.SplitN(string(res.Body), "|", 2)
	if len(parts) != 2 {
		return SessionIdentity{}, UnauthenticatedError(nil)
	}
	identity, err := NewSessionIdentity(parts[0], parts[1])
	if err != nil {
		return SessionIdentity{}, UnauthenticatedError(err)
	}
	return identity, nil
}

func (a *fakeAuthAPI) Terminate(ctx context.Context) error {
	_, err := a.calls.Do(ctx, RequestDescriptor{Endpoint: EndpointTerminate, Method: http.MethodPost, Path: "/logout"})
	return err
}

func fakeAuthFactory(calls Transport, renewals Transport, _ Config) (AuthAPI, error) {
	return &fakeAuthAPI{calls: calls, renewals: renewals}, nil
}

func newTestService(t *testing.T, backend *fakeBackend, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithTransport(backend),
		WithAuthAPIFactory(fakeAuthFactory),
		WithLogger(stubLogger{}),
		WithLoggerProvider(stubLoggerProvider{logger: stubLogger{}}),
	}
	svc, err := NewService(DefaultConfig(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func loginTestService(t *testing.T, svc *Service) {
	t.Helper()
	if err := svc.Login(context.Background(), Credentials{Username: "jane", Password: "secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return l.values, nil
}

type captureActivitySink struct {
	mu      sync.Mutex
	entries []SessionActivity
	err     error
}

func (s *captureActivitySink) Record(_ context.Context, entry SessionActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return s.err
}

func (s *captureActivitySink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Action)
	}
	return out
}
