package core

import (
	"context"
	"sync"
)

// SessionStore owns the single live SessionState. Reads return copies and
// listeners observe every change after the lock is released.
type SessionStore struct {
	api AuthAPI
	obs *observer

	mu    sync.RWMutex
	state SessionState
	// epoch advances on every logout or clear; probe results read under an
	// older epoch never restore an identity.
	epoch uint64

	listenersMu  sync.Mutex
	listeners    []listenerEntry
	nextListener uint64
}

type listenerEntry struct {
	id       uint64
	listener SessionListener
}

func NewSessionStore(api AuthAPI) *SessionStore {
	return &SessionStore{
		api:   api,
		state: SessionState{Loading: true},
	}
}

func (s *SessionStore) State() SessionState {
	if s == nil {
		return SessionState{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Probe asks the server who the current session belongs to. Any failure leaves
// the session without identity; Loading is always false afterwards.
func (s *SessionStore) Probe(ctx context.Context) SessionState {
	if s == nil {
		return SessionState{}
	}
	epoch := s.currentEpoch()
	if s.api == nil {
		return s.settle(epoch, SessionState{})
	}
	startedAt := s.obs.now()
	identity, err := s.api.Identity(ctx)
	if err != nil {
		s.obs.logDebug(ctx, "session probe found no identity", map[string]any{
			"error":       err.Error(),
			"duration_ms": s.obs.now().Sub(startedAt).Milliseconds(),
		})
		return s.settle(epoch, SessionState{})
	}
	normalized, err := NewSessionIdentity(identity.SubjectID, string(identity.Role))
	if err != nil {
		s.obs.logWarn(ctx, "session probe returned malformed identity", map[string]any{"error": err.Error()})
		return s.settle(epoch, SessionState{})
	}
	return s.settle(epoch, SessionState{Identity: &normalized})
}

// Login authenticates and then probes. A rejected authenticate surfaces as
// InvalidCredentials; an accepted one that still yields no identity surfaces
// as Unauthenticated.
func (s *SessionStore) Login(ctx context.Context, credentials Credentials) error {
	if s == nil || s.api == nil {
		return internalError("core: session store is not configured")
	}
	if err := credentials.Validate(); err != nil {
		return badInputError(err.Error())
	}
	startedAt := s.obs.now()
	username := credentials.Username

	if err := s.api.Authenticate(ctx, credentials); err != nil {
		err = classifyAuthenticateError(err)
		s.set(SessionState{})
		s.obs.observeOperation(ctx, startedAt, "login", err, map[string]any{"username": username})
		s.obs.recordActivity(ctx, SessionActivity{
			SubjectID:   username,
			Action:      ActivityLoginFailed,
			Description: "login rejected",
			Status:      ActivityStatusError,
			Metadata:    map[string]any{"error": err.Error()},
		})
		return err
	}

	state := s.Probe(ctx)
	if !state.Authenticated() {
		err := UnauthenticatedError(nil)
		s.obs.observeOperation(ctx, startedAt, "login", err, map[string]any{"username": username})
		s.obs.recordActivity(ctx, SessionActivity{
			SubjectID:   username,
			Action:      ActivityLoginFailed,
			Description: "authenticated but identity probe returned no session",
			Status:      ActivityStatusError,
		})
		return err
	}

	s.obs.observeOperation(ctx, startedAt, "login", nil, map[string]any{
		"subject_id": state.Identity.SubjectID,
		"role":       string(state.Identity.Role),
	})
	s.obs.recordActivity(ctx, SessionActivity{
		SubjectID:   state.Identity.SubjectID,
		Action:      ActivityLoginSucceeded,
		Description: "user logged in",
		Metadata:    map[string]any{"role": string(state.Identity.Role)},
	})
	return nil
}

// Logout clears the identity first and then asks the server to terminate the
// session. A failed terminate is logged only.
func (s *SessionStore) Logout(ctx context.Context) {
	if s == nil {
		return
	}
	previous := s.reset()

	var err error
	if s.api != nil {
		err = s.api.Terminate(ctx)
	}
	fields := map[string]any{}
	subjectID := ""
	if previous.Identity != nil {
		subjectID = previous.Identity.SubjectID
		fields["subject_id"] = subjectID
	}
	if err != nil {
		fields["error"] = err.Error()
		s.obs.logWarn(ctx, "session terminate failed", fields)
	}
	entry := SessionActivity{
		SubjectID:   subjectID,
		Action:      ActivityLogout,
		Description: "user logged out",
	}
	if err != nil {
		entry.Metadata = map[string]any{"terminate_error": err.Error()}
	}
	s.obs.recordActivity(ctx, entry)
}

// Clear drops the identity without contacting the server.
func (s *SessionStore) Clear(ctx context.Context, reason string) {
	if s == nil {
		return
	}
	previous := s.reset()
	if previous.Identity == nil {
		return
	}
	s.obs.logInfo(ctx, "session cleared", map[string]any{
		"subject_id": previous.Identity.SubjectID,
		"reason":     reason,
	})
	s.obs.recordActivity(ctx, SessionActivity{
		SubjectID:   previous.Identity.SubjectID,
		Action:      ActivitySessionCleared,
		Description: "session cleared",
		Status:      ActivityStatusError,
		Metadata:    map[string]any{"reason": reason},
	})
}

// Subscribe registers listener and returns a function that removes it.
func (s *SessionStore) Subscribe(listener SessionListener) func() {
	if s == nil || listener == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listenerEntry{id: id, listener: listener})
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			for i, entry := range s.listeners {
				if entry.id == id {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *SessionStore) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *SessionStore) set(next SessionState) SessionState {
	s.mu.Lock()
	return s.commitLocked(next)
}

// reset drops the identity, advances the epoch and returns the state it
// replaced.
func (s *SessionStore) reset() SessionState {
	s.mu.Lock()
	previous := s.state.clone()
	s.epoch++
	s.commitLocked(SessionState{})
	return previous
}

// settle applies a probe result read under epoch. A stale result only ends
// loading and keeps whatever identity the newer writer left.
func (s *SessionStore) settle(epoch uint64, next SessionState) SessionState {
	s.mu.Lock()
	if s.epoch != epoch {
		next = s.state.clone()
		next.Loading = false
	}
	return s.commitLocked(next)
}

// commitLocked stores next, releases mu and notifies listeners on change.
func (s *SessionStore) commitLocked(next SessionState) SessionState {
	changed := !s.state.Equal(next)
	s.state = next.clone()
	current := s.state.clone()
	s.mu.Unlock()

	if changed {
		s.notify(current)
	}
	return current
}

func (s *SessionStore) notify(state SessionState) {
	s.listenersMu.Lock()
	listeners := make([]SessionListener, 0, len(s.listeners))
	for _, entry := range s.listeners {
		listeners = append(listeners, entry.listener)
	}
	s.listenersMu.Unlock()
	for _, listener := range listeners {
		listener(state.clone())
	}
}

func classifyAuthenticateError(err error) error {
	switch {
	case err == nil:
		return nil
	case IsInvalidCredentials(err), IsTransportUnavailable(err):
		return err
	case IsUnauthorized(err), HTTPStatus(err) == 401:
		return InvalidCredentialsError(err)
	default:
		return err
	}
}

