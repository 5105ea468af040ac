package core

import (
	"sort"
)

type RouteRule struct {
	Path    string
	Allowed RoleSet
}

// RouteTable maps application paths to role allow-lists and applies the
// navigation rules around the login page and unknown paths.
type RouteTable struct {
	nav   NavigationConfig
	rules map[string]RouteRule
}

func NewRouteTable(nav NavigationConfig, rules ...RouteRule) *RouteTable {
	table := &RouteTable{nav: nav, rules: make(map[string]RouteRule, len(rules))}
	for _, rule := range rules {
		path := normalizePath(rule.Path)
		if path == "" {
			continue
		}
		rule.Path = path
		table.rules[path] = rule
	}
	return table
}

// DefaultRouteTable returns the inventory application's routes.
func DefaultRouteTable(nav NavigationConfig) *RouteTable {
	shared := []string{
		"/dashboard",
		"/inventory",
		"/stockcard",
		"/transaction",
		"/joborder",
		"/job-orders/transactions",
		"/job-orders/inventory",
		"/predictive",
		"/monthly",
	}
	rules := make([]RouteRule, 0, len(shared)+3)
	for _, path := range shared {
		rules = append(rules, RouteRule{Path: path, Allowed: AllRoles()})
	}
	rules = append(rules,
		RouteRule{Path: "/orderslip", Allowed: NewRoleSet(string(RoleAdmin), string(RoleStaff))},
		RouteRule{Path: "/activitylog", Allowed: NewRoleSet(string(RoleAdmin), string(RoleEnterpriseDivision))},
		RouteRule{Path: "/accountmanagement", Allowed: NewRoleSet(string(RoleAdmin))},
	)
	return NewRouteTable(nav, rules...)
}

func (t *RouteTable) Rule(path string) (RouteRule, bool) {
	if t == nil {
		return RouteRule{}, false
	}
	rule, ok := t.rules[normalizePath(path)]
	return rule, ok
}

func (t *RouteTable) Paths() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.rules))
	for path := range t.rules {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Navigate decides what happens when the session in state opens path.
func (t *RouteTable) Navigate(state SessionState, path string) Decision {
	if state.Loading {
		return Pending()
	}
	if t == nil {
		return Redirect(TargetLogin)
	}
	path = normalizePath(path)
	if path == normalizePath(t.nav.LoginPath) {
		if state.Identity != nil {
			return Redirect(TargetHome)
		}
		return Allow()
	}
	if path == normalizePath(t.nav.ForbiddenPath) {
		if state.Identity == nil {
			return Redirect(TargetLogin)
		}
		return Allow()
	}
	rule, ok := t.rules[path]
	if !ok {
		if state.Identity == nil {
			return Redirect(TargetLogin)
		}
		return Redirect(TargetHome)
	}
	return Decide(state, rule.Allowed)
}
