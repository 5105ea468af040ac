package core

import "fmt"

type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeAllow
	OutcomeRedirect
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeAllow:
		return "allow"
	case OutcomeRedirect:
		return "redirect"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type RedirectTarget string

const (
	TargetNone      RedirectTarget = ""
	TargetLogin     RedirectTarget = "login"
	TargetForbidden RedirectTarget = "forbidden"
	TargetHome      RedirectTarget = "home"
)

// Decision is the outcome of guarding a view. Target is set only for
// OutcomeRedirect.
type Decision struct {
	Outcome Outcome
	Target  RedirectTarget
}

func Pending() Decision { return Decision{Outcome: OutcomePending} }

func Allow() Decision { return Decision{Outcome: OutcomeAllow} }

func Redirect(target RedirectTarget) Decision {
	return Decision{Outcome: OutcomeRedirect, Target: target}
}

func (d Decision) String() string {
	if d.Outcome == OutcomeRedirect {
		return "redirect(" + string(d.Target) + ")"
	}
	return d.Outcome.String()
}

// Path resolves a redirect target to a navigation path, or "" when d is not a
// redirect.
func (d Decision) Path(nav NavigationConfig) string {
	if d.Outcome != OutcomeRedirect {
		return ""
	}
	switch d.Target {
	case TargetLogin:
		return nav.LoginPath
	case TargetForbidden:
		return nav.ForbiddenPath
	case TargetHome:
		return nav.HomePath
	default:
		return ""
	}
}

// Decide guards a view restricted to allowed. It never renders protected
// content while the session is still loading.
func Decide(state SessionState, allowed RoleSet) Decision {
	if state.Loading {
		return Pending()
	}
	if state.Identity == nil {
		return Redirect(TargetLogin)
	}
	if !allowed.Contains(state.Identity.Role) {
		return Redirect(TargetForbidden)
	}
	return Allow()
}
