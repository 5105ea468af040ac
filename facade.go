package session

import (
	"fmt"

	sessioncommand "github.com/goliatone/go-session/command"
	"github.com/goliatone/go-session/core"
	sessionquery "github.com/goliatone/go-session/query"
)

type CommandQueryService interface {
	sessioncommand.SessionService
	sessionquery.SessionReader
}

type Commands struct {
	Login  *sessioncommand.LoginCommand
	Logout *sessioncommand.LogoutCommand
	Probe  *sessioncommand.ProbeCommand
}

type Queries struct {
	SessionState        *sessionquery.SessionStateQuery
	DecideRoute         *sessionquery.DecideRouteQuery
	Navigate            *sessionquery.NavigateQuery
	ListSessionActivity *sessionquery.ListSessionActivityQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader sessionquery.SessionActivityReader
}

func WithActivityReader(reader sessionquery.SessionActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

// NewFacade wires the session commands and queries around service. Without
// WithActivityReader, the activity query reads from the service's activity
// sink when that sink can also list entries.
func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("session: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.activityReader
	if reader == nil {
		reader = resolveActivityReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Login:  sessioncommand.NewLoginCommand(service),
		Logout: sessioncommand.NewLogoutCommand(service),
		Probe:  sessioncommand.NewProbeCommand(service),
	}
	facade.queries = Queries{
		SessionState:        sessionquery.NewSessionStateQuery(service),
		DecideRoute:         sessionquery.NewDecideRouteQuery(service),
		Navigate:            sessionquery.NewNavigateQuery(service),
		ListSessionActivity: sessionquery.NewListSessionActivityQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveActivityReader(service CommandQueryService) sessionquery.SessionActivityReader {
	if reader, ok := service.(sessionquery.SessionActivityReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	sink := provider.Dependencies().ActivitySink
	if sink == nil {
		return nil
	}
	reader, ok := sink.(sessionquery.SessionActivityReader)
	if !ok {
		return nil
	}
	return reader
}
