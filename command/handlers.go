package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-session/core"
)

// SessionService is the mutating surface of core.Service used by commands.
type SessionService interface {
	Login(ctx context.Context, credentials core.Credentials) error
	Logout(ctx context.Context)
	Probe(ctx context.Context) core.SessionState
	State() core.SessionState
}

type LoginCommand struct {
	service SessionService
}

func NewLoginCommand(service SessionService) *LoginCommand {
	return &LoginCommand{service: service}
}

// Execute logs in and stores the resulting SessionState in the context result
// collector, when one is present.
func (c *LoginCommand) Execute(ctx context.Context, msg LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	if err := c.service.Login(ctx, msg.Credentials); err != nil {
		return err
	}
	storeResult(ctx, c.service.State())
	return nil
}

type LogoutCommand struct {
	service SessionService
}

func NewLogoutCommand(service SessionService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	c.service.Logout(ctx)
	storeResult(ctx, c.service.State())
	return nil
}

type ProbeCommand struct {
	service SessionService
}

func NewProbeCommand(service SessionService) *ProbeCommand {
	return &ProbeCommand{service: service}
}

func (c *ProbeCommand) Execute(ctx context.Context, _ ProbeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: probe service is required")
	}
	storeResult(ctx, c.service.Probe(ctx))
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
