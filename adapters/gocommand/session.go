package gocommand

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	sessioncommand "github.com/goliatone/go-session/command"
	"github.com/goliatone/go-session/core"
	sessionquery "github.com/goliatone/go-session/query"
)

// SessionBackend is the service surface the session handlers need.
type SessionBackend interface {
	sessioncommand.SessionService
	sessionquery.SessionReader
}

// SessionHandlers tracks the dispatcher subscriptions created for one
// session service.
type SessionHandlers struct {
	subscriptions []commanddispatcher.Subscription
}

// Unsubscribe removes every handler from the dispatcher.
func (h *SessionHandlers) Unsubscribe() {
	if h == nil {
		return
	}
	for _, subscription := range h.subscriptions {
		unsubscribe(subscription)
	}
	h.subscriptions = nil
}

func (h *SessionHandlers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.subscriptions)
}

// RegisterSessionHandlers registers and subscribes the login, logout and probe
// commands plus the session queries. The activity query is skipped when
// activity is nil. On failure every subscription made so far is removed.
func RegisterSessionHandlers(
	bus *Bus,
	backend SessionBackend,
	activity sessionquery.SessionActivityReader,
	runnerOpts ...runner.Option,
) (*SessionHandlers, error) {
	if !bus.configured() {
		return nil, errBusNotConfigured
	}
	if backend == nil {
		return nil, fmt.Errorf("gocommand: session backend is required")
	}

	handlers := &SessionHandlers{}
	track := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			handlers.Unsubscribe()
			return err
		}
		handlers.subscriptions = append(handlers.subscriptions, subscription)
		return nil
	}

	if err := track(SubscribeCommand[sessioncommand.LoginMessage](bus, sessioncommand.NewLoginCommand(backend), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := track(SubscribeCommand[sessioncommand.LogoutMessage](bus, sessioncommand.NewLogoutCommand(backend), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := track(SubscribeCommand[sessioncommand.ProbeMessage](bus, sessioncommand.NewProbeCommand(backend), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := track(SubscribeQuery[sessionquery.SessionStateMessage, core.SessionState](bus, sessionquery.NewSessionStateQuery(backend), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := track(SubscribeQuery[sessionquery.DecideRouteMessage, core.Decision](bus, sessionquery.NewDecideRouteQuery(backend), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := track(SubscribeQuery[sessionquery.NavigateMessage, core.Decision](bus, sessionquery.NewNavigateQuery(backend), runnerOpts...)); err != nil {
		return nil, err
	}
	if activity != nil {
		if err := track(SubscribeQuery[sessionquery.ListSessionActivityMessage, core.ActivityPage](bus, sessionquery.NewListSessionActivityQuery(activity), runnerOpts...)); err != nil {
			return nil, err
		}
	}
	return handlers, nil
}
