package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-session/core"
)

var (
	_ gocmd.Querier[SessionStateMessage, core.SessionState]        = (*SessionStateQuery)(nil)
	_ gocmd.Querier[DecideRouteMessage, core.Decision]             = (*DecideRouteQuery)(nil)
	_ gocmd.Querier[NavigateMessage, core.Decision]                = (*NavigateQuery)(nil)
	_ gocmd.Querier[ListSessionActivityMessage, core.ActivityPage] = (*ListSessionActivityQuery)(nil)

	_ SessionReader = (*core.Service)(nil)
)
