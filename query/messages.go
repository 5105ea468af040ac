package query

import (
	"strings"

	"github.com/goliatone/go-session/core"
)

const (
	TypeSessionState        = "session.query.state"
	TypeDecideRoute         = "session.query.route.decide"
	TypeNavigate            = "session.query.route.navigate"
	TypeListSessionActivity = "session.query.activity.list"
)

type SessionStateMessage struct{}

func (SessionStateMessage) Type() string { return TypeSessionState }

func (SessionStateMessage) Validate() error { return nil }

// DecideRouteMessage guards a view with an explicit role allow-list. Roles are
// normalized; unknown names are ignored.
type DecideRouteMessage struct {
	AllowedRoles []string
}

func (DecideRouteMessage) Type() string { return TypeDecideRoute }

func (m DecideRouteMessage) Validate() error {
	if len(m.AllowedRoles) == 0 {
		return queryValidationError("allowed_roles", "at least one role is required")
	}
	return nil
}

type NavigateMessage struct {
	Path string
}

func (NavigateMessage) Type() string { return TypeNavigate }

func (m NavigateMessage) Validate() error {
	if strings.TrimSpace(m.Path) == "" {
		return queryValidationError("path", "path is required")
	}
	return nil
}

type ListSessionActivityMessage struct {
	Filter core.ActivityFilter
}

func (ListSessionActivityMessage) Type() string { return TypeListSessionActivity }

func (m ListSessionActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	if m.Filter.From != nil && m.Filter.To != nil && m.Filter.To.Before(*m.Filter.From) {
		return queryValidationError("to", "to must not be before from")
	}
	return nil
}
