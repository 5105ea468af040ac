package command

import (
	"strings"

	"github.com/goliatone/go-session/core"
)

const (
	TypeLogin  = "session.command.login"
	TypeLogout = "session.command.logout"
	TypeProbe  = "session.command.probe"
)

type LoginMessage struct {
	Credentials core.Credentials
}

func (LoginMessage) Type() string { return TypeLogin }

func (m LoginMessage) Validate() error {
	if strings.TrimSpace(m.Credentials.Username) == "" {
		return commandValidationError("username", "username is required")
	}
	if m.Credentials.Password == "" {
		return commandValidationError("password", "password is required")
	}
	return nil
}

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

func (LogoutMessage) Validate() error { return nil }

// ProbeMessage re-reads the server-side identity. Hosts dispatch it at startup
// and after navigation events that may have changed the session.
type ProbeMessage struct{}

func (ProbeMessage) Type() string { return TypeProbe }

func (ProbeMessage) Validate() error { return nil }
