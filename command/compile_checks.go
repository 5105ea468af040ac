package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-session/core"
)

var (
	_ gocmd.Commander[LoginMessage]  = (*LoginCommand)(nil)
	_ gocmd.Commander[LogoutMessage] = (*LogoutCommand)(nil)
	_ gocmd.Commander[ProbeMessage]  = (*ProbeCommand)(nil)

	_ SessionService = (*core.Service)(nil)
)
