package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySubjectID = errors.New("core: identity subject id is required")
	ErrEmptyRole      = errors.New("core: identity role is required")
)

// Endpoint names a logical remote operation. Protected calls use any value other
// than the auth endpoints below.
type Endpoint string

const (
	EndpointAuthenticate Endpoint = "authenticate"
	EndpointRenew        Endpoint = "renew"
	EndpointTerminate    Endpoint = "terminate"
	EndpointIdentity     Endpoint = "identity"
	EndpointProtected    Endpoint = "protected"
)

// SessionIdentity is replaced wholesale, never mutated in place.
type SessionIdentity struct {
	SubjectID string
	Role      Role
}

// NewSessionIdentity normalizes the role at the data-model boundary so every
// comparison site sees the same casing.
func NewSessionIdentity(subjectID string, role string) (SessionIdentity, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return SessionIdentity{}, ErrEmptySubjectID
	}
	normalized := NormalizeRole(role)
	if normalized == "" {
		return SessionIdentity{}, fmt.Errorf("%w: subject %q", ErrEmptyRole, subjectID)
	}
	return SessionIdentity{SubjectID: subjectID, Role: normalized}, nil
}

type SessionState struct {
	Identity *SessionIdentity
	Loading  bool
}

func (s SessionState) Authenticated() bool {
	return s.Identity != nil
}

func (s SessionState) Role() Role {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Role
}

func (s SessionState) Equal(other SessionState) bool {
	if s.Loading != other.Loading {
		return false
	}
	if s.Identity == nil || other.Identity == nil {
		return s.Identity == nil && other.Identity == nil
	}
	return *s.Identity == *other.Identity
}

func (s SessionState) clone() SessionState {
	out := SessionState{Loading: s.Loading}
	if s.Identity != nil {
		identity := *s.Identity
		out.Identity = &identity
	}
	return out
}

type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("core: username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("core: password is required")
	}
	return nil
}

// RequestDescriptor describes one outbound call. Retried is set on the replay
// that follows a renewal and blocks any further renewal for that call.
type RequestDescriptor struct {
	Endpoint Endpoint
	Method   string
	Path     string
	Query    map[string]string
	Headers  map[string]string
	Body     []byte
	Retried  bool
}

func (d RequestDescriptor) withRetried() RequestDescriptor {
	out := d
	out.Retried = true
	out.Query = cloneStrings(d.Query)
	out.Headers = cloneStrings(d.Headers)
	if d.Body != nil {
		out.Body = append([]byte(nil), d.Body...)
	}
	return out
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
