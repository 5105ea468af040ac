package core

import "strings"

// IsExempt reports whether endpoint belongs to the auth flow itself. Failures on
// these endpoints surface directly and never trigger a renewal.
func IsExempt(endpoint Endpoint) bool {
	switch endpoint {
	case EndpointAuthenticate, EndpointRenew, EndpointTerminate:
		return true
	default:
		return false
	}
}

// ClassifyPath maps a request path onto a logical endpoint using the configured
// auth paths. Anything unmatched is a protected call.
func ClassifyPath(path string, endpoints EndpointsConfig) Endpoint {
	path = normalizePath(path)
	if path == "" {
		return EndpointProtected
	}
	switch path {
	case normalizePath(endpoints.Authenticate):
		return EndpointAuthenticate
	case normalizePath(endpoints.Renew):
		return EndpointRenew
	case normalizePath(endpoints.Terminate):
		return EndpointTerminate
	case normalizePath(endpoints.Identity):
		return EndpointIdentity
	default:
		return EndpointProtected
	}
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.ToLower(path)
}
