package core

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestSessionStore_StartsLoading(t *testing.T) {
	svc := newTestService(t, newFakeBackend())
	state := svc.State()
	if !state.Loading || state.Authenticated() {
		t.Fatalf("expected loading state without identity, got %+v", state)
	}
}

func TestSessionStore_ProbeWithoutSession(t *testing.T) {
	backend := newFakeBackend()
	backend.update(func(b *fakeBackend) { b.refreshValid = false })
	svc := newTestService(t, backend)

	state := svc.Probe(context.Background())
	if state.Loading {
		t.Fatalf("expected loading=false after probe")
	}
	if state.Authenticated() {
		t.Fatalf("expected no identity without a session")
	}
}

func TestSessionStore_ProbeIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	loginTestService(t, svc)

	var mu sync.Mutex
	notifications := 0
	unsubscribe := svc.Subscribe(func(SessionState) {
		mu.Lock()
		notifications++
		mu.Unlock()
	})
	defer unsubscribe()

	first := svc.Probe(context.Background())
	second := svc.Probe(context.Background())
	if !first.Equal(second) {
		t.Fatalf("expected identical states, got %+v and %+v", first, second)
	}
	if first.Identity == nil || first.Identity.SubjectID != "7" {
		t.Fatalf("expected subject 7, got %+v", first.Identity)
	}
	mu.Lock()
	defer mu.Unlock()
	if notifications != 0 {
		t.Fatalf("expected no change notifications for unchanged identity, got %d", notifications)
	}
}

func TestSessionStore_LoginNormalizesRole(t *testing.T) {
	backend := newFakeBackend()
	backend.update(func(b *fakeBackend) { b.role = "Enterprise_Division" })
	sink := &captureActivitySink{}
	svc := newTestService(t, backend, WithActivitySink(sink))

	loginTestService(t, svc)
	state := svc.State()
	if state.Role() != RoleEnterpriseDivision {
		t.Fatalf("expected normalized role, got %q", state.Role())
	}
	if !containsString(sink.actions(), ActivityLoginSucceeded) {
		t.Fatalf("expected login activity, got %v", sink.actions())
	}
}

func TestSessionStore_LoginRejected(t *testing.T) {
	backend := newFakeBackend()
	sink := &captureActivitySink{}
	svc := newTestService(t, backend, WithActivitySink(sink))

	err := svc.Login(context.Background(), Credentials{Username: "jane", Password: "wrong"})
	if !IsInvalidCredentials(err) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if svc.State().Authenticated() {
		t.Fatalf("expected identity to stay absent")
	}
	if backend.renewCalls.Load() != 0 {
		t.Fatalf("expected login failure not to trigger renewal")
	}
	if !containsString(sink.actions(), ActivityLoginFailed) {
		t.Fatalf("expected failed login activity, got %v", sink.actions())
	}
}

func TestSessionStore_LoginValidatesCredentials(t *testing.T) {
	svc := newTestService(t, newFakeBackend())
	err := svc.Login(context.Background(), Credentials{Username: " ", Password: "x"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !hasTextCode(err, SessionErrorBadInput) {
		t.Fatalf("expected bad input text code, got %v", err)
	}
}

func TestSessionStore_LoginWithoutIdentityIsUnauthenticated(t *testing.T) {
	backend := newFakeBackend()
	backend.update(func(b *fakeBackend) { b.identityEmpty = true })
	svc := newTestService(t, backend)

	err := svc.Login(context.Background(), Credentials{Username: "jane", Password: "secret"})
	if !IsUnauthenticated(err) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if svc.State().Authenticated() {
		t.Fatalf("expected no identity")
	}
}

func TestSessionStore_LogoutClearsEvenWhenTerminateFails(t *testing.T) {
	backend := newFakeBackend()
	backend.update(func(b *fakeBackend) { b.terminateFail = true })
	logger := newCaptureLogger()
	sink := &captureActivitySink{}
	svc := newTestService(t, backend,
		WithLogger(logger),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithActivitySink(sink),
	)
	loginTestService(t, svc)

	svc.Logout(context.Background())
	if svc.State().Authenticated() {
		t.Fatalf("expected identity to be cleared")
	}
	if backend.callCount(EndpointTerminate) != 1 {
		t.Fatalf("expected one terminate call")
	}
	if !hasLog(logger.snapshot(), "warn", "session terminate failed") {
		t.Fatalf("expected terminate failure to be logged")
	}
	if !containsString(sink.actions(), ActivityLogout) {
		t.Fatalf("expected logout activity, got %v", sink.actions())
	}
}

func TestSessionStore_SubscribeObservesChanges(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	var mu sync.Mutex
	var seen []SessionState
	unsubscribe := svc.Subscribe(func(state SessionState) {
		mu.Lock()
		seen = append(seen, state)
		mu.Unlock()
	})

	loginTestService(t, svc)
	svc.Logout(context.Background())
	unsubscribe()
	unsubscribe()
	loginTestService(t, svc)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("expected login and logout notifications, got %d", len(seen))
	}
	if !seen[0].Authenticated() || seen[1].Authenticated() {
		t.Fatalf("unexpected notification order: %+v", seen)
	}
}

func TestSessionStore_ActivitySinkFailuresAreSwallowed(t *testing.T) {
	sink := &captureActivitySink{err: errors.New("database is locked")}
	svc := newTestService(t, newFakeBackend(), WithActivitySink(sink))
	loginTestService(t, svc)
	if !svc.State().Authenticated() {
		t.Fatalf("expected login to succeed despite sink failure")
	}
}

func TestSessionStore_ClearWithoutIdentityIsQuiet(t *testing.T) {
	sink := &captureActivitySink{}
	store := NewSessionStore(nil)
	store.obs = &observer{activitySink: sink}
	store.Clear(context.Background(), "manual")
	if len(sink.actions()) != 0 {
		t.Fatalf("expected no activity for clearing an empty session")
	}
	if store.State().Loading {
		t.Fatalf("expected loading=false after clear")
	}
}

func TestSessionStore_InFlightProbeDoesNotRestoreClearedIdentity(t *testing.T) {
	cases := []struct {
		name  string
		clear func(store *SessionStore)
	}{
		{name: "logout", clear: func(store *SessionStore) { store.Logout(context.Background()) }},
		{name: "renewal rejected", clear: func(store *SessionStore) { store.Clear(context.Background(), RenewalReasonRejected) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &gatedIdentityAPI{entered: make(chan struct{}), release: make(chan struct{})}
			store := NewSessionStore(api)

			done := make(chan SessionState, 1)
			go func() { done <- store.Probe(context.Background()) }()
			<-api.entered

			tc.clear(store)
			close(api.release)

			probed := <-done
			if probed.Authenticated() || probed.Loading {
				t.Fatalf("expected settled anonymous probe result, got %+v", probed)
			}
			if state := store.State(); state.Authenticated() {
				t.Fatalf("identity restored after %s: %+v", tc.name, state.Identity)
			}
		})
	}
}

func TestSessionStore_ProbeAfterClearSetsIdentity(t *testing.T) {
	api := &gatedIdentityAPI{entered: make(chan struct{}, 1), release: make(chan struct{})}
	close(api.release)
	store := NewSessionStore(api)
	store.Clear(context.Background(), "manual")

	if state := store.Probe(context.Background()); !state.Authenticated() {
		t.Fatalf("expected a probe started after clear to set identity, got %+v", state)
	}
}

// gatedIdentityAPI signals entered once Identity starts and answers only after
// release is closed.
type gatedIdentityAPI struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (a *gatedIdentityAPI) Authenticate(context.Context, Credentials) error { return nil }
func (a *gatedIdentityAPI) Renew(context.Context) error                     { return nil }
func (a *gatedIdentityAPI) Terminate(context.Context) error                 { return nil }

func (a *gatedIdentityAPI) Identity(context.Context) (SessionIdentity, error) {
	a.once.Do(func() { close(a.entered) })
	<-a.release
	return NewSessionIdentity("7", "staff")
}
