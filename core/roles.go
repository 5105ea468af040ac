package core

import (
	"sort"
	"strings"
)

// Role values are stored lower-cased; see NormalizeRole.
type Role string

const (
	RoleAdmin              Role = "admin"
	RoleStaff              Role = "staff"
	RoleEnterpriseDivision Role = "enterprise_division"
)

var knownRoles = []Role{RoleAdmin, RoleStaff, RoleEnterpriseDivision}

// NormalizeRole is the single normalization point for role strings. Identities
// and role sets both pass through it, so the guard compares normalized values.
func NormalizeRole(role string) Role {
	return Role(strings.TrimSpace(strings.ToLower(role)))
}

// ParseRole reports whether role names one of the recognized roles.
func ParseRole(role string) (Role, bool) {
	normalized := NormalizeRole(role)
	for _, known := range knownRoles {
		if normalized == known {
			return known, true
		}
	}
	return "", false
}

func (r Role) Known() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func KnownRoles() []Role {
	return append([]Role(nil), knownRoles...)
}

// RoleSet is an allow-list of recognized roles. Unrecognized names are dropped
// at construction.
type RoleSet struct {
	members map[Role]struct{}
}

func NewRoleSet(roles ...string) RoleSet {
	set := RoleSet{members: make(map[Role]struct{}, len(roles))}
	for _, role := range roles {
		if parsed, ok := ParseRole(role); ok {
			set.members[parsed] = struct{}{}
		}
	}
	return set
}

func AllRoles() RoleSet {
	set := RoleSet{members: make(map[Role]struct{}, len(knownRoles))}
	for _, role := range knownRoles {
		set.members[role] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(role Role) bool {
	if len(s.members) == 0 {
		return false
	}
	_, ok := s.members[NormalizeRole(string(role))]
	return ok
}

func (s RoleSet) Len() int {
	return len(s.members)
}

func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.members))
	for role := range s.members {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
