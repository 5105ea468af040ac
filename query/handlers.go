package query

import (
	"context"

	"github.com/goliatone/go-session/core"
)

// SessionReader is the read surface of core.Service used by queries.
type SessionReader interface {
	State() core.SessionState
	Decide(allowed core.RoleSet) core.Decision
	Navigate(path string) core.Decision
}

type SessionActivityReader interface {
	List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error)
}

type SessionStateQuery struct {
	reader SessionReader
}

func NewSessionStateQuery(reader SessionReader) *SessionStateQuery {
	return &SessionStateQuery{reader: reader}
}

func (q *SessionStateQuery) Query(_ context.Context, _ SessionStateMessage) (core.SessionState, error) {
	if q == nil || q.reader == nil {
		return core.SessionState{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.State(), nil
}

type DecideRouteQuery struct {
	reader SessionReader
}

func NewDecideRouteQuery(reader SessionReader) *DecideRouteQuery {
	return &DecideRouteQuery{reader: reader}
}

func (q *DecideRouteQuery) Query(_ context.Context, msg DecideRouteMessage) (core.Decision, error) {
	if q == nil || q.reader == nil {
		return core.Decision{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.Decide(core.NewRoleSet(msg.AllowedRoles...)), nil
}

type NavigateQuery struct {
	reader SessionReader
}

func NewNavigateQuery(reader SessionReader) *NavigateQuery {
	return &NavigateQuery{reader: reader}
}

func (q *NavigateQuery) Query(_ context.Context, msg NavigateMessage) (core.Decision, error) {
	if q == nil || q.reader == nil {
		return core.Decision{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.Navigate(msg.Path), nil
}

type ListSessionActivityQuery struct {
	reader SessionActivityReader
}

func NewListSessionActivityQuery(reader SessionActivityReader) *ListSessionActivityQuery {
	return &ListSessionActivityQuery{reader: reader}
}

func (q *ListSessionActivityQuery) Query(
	ctx context.Context,
	msg ListSessionActivityMessage,
) (core.ActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.ActivityPage{}, queryDependencyError("query: session activity reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}
