package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestErrorConstructors(t *testing.T) {
	req := RequestDescriptor{Endpoint: EndpointProtected, Method: "get", Path: "/inventory"}
	cases := []struct {
		name     string
		err      *goerrors.Error
		textCode string
		category goerrors.Category
		status   int
	}{
		{"transport", TransportUnavailableError(errors.New("refused"), req), SessionErrorTransportUnavailable, goerrors.CategoryExternal, http.StatusBadGateway},
		{"unauthorized", UnauthorizedError(req, Response{StatusCode: 401}), SessionErrorUnauthorized, goerrors.CategoryAuth, http.StatusUnauthorized},
		{"renewal", RenewalRejectedError(nil, ""), SessionErrorRenewalRejected, goerrors.CategoryAuth, http.StatusUnauthorized},
		{"credentials", InvalidCredentialsError(nil), SessionErrorInvalidCredentials, goerrors.CategoryAuth, http.StatusUnauthorized},
		{"unauthenticated", UnauthenticatedError(nil), SessionErrorUnauthenticated, goerrors.CategoryAuth, http.StatusUnauthorized},
		{"forbidden", HTTPError(req, Response{StatusCode: 403}), SessionErrorHTTP, goerrors.CategoryAuthz, http.StatusForbidden},
		{"server", HTTPError(req, Response{StatusCode: 503}), SessionErrorHTTP, goerrors.CategoryExternal, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.TextCode != tc.textCode {
				t.Fatalf("expected text code %s, got %s", tc.textCode, tc.err.TextCode)
			}
			if tc.err.Category != tc.category {
				t.Fatalf("expected category %s, got %s", tc.category, tc.err.Category)
			}
			if HTTPStatus(tc.err) != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, HTTPStatus(tc.err))
			}
		})
	}
}

func TestErrorMetadata(t *testing.T) {
	req := RequestDescriptor{Endpoint: EndpointProtected, Method: "post", Path: "/transaction"}
	err := UnauthorizedError(req.withRetried(), Response{StatusCode: 401})
	meta := ErrorMetadata(err)
	if meta["path"] != "/transaction" || meta["method"] != "POST" || meta["endpoint"] != "protected" {
		t.Fatalf("unexpected request metadata: %+v", meta)
	}
	if meta["retried"] != true || meta["status_code"] != 401 {
		t.Fatalf("unexpected response metadata: %+v", meta)
	}
	if ErrorMetadata(errors.New("plain")) != nil {
		t.Fatalf("expected nil metadata for plain errors")
	}
}

func TestRenewalRejectedErrorKeepsExistingEnvelope(t *testing.T) {
	first := RenewalRejectedError(context.DeadlineExceeded, RenewalReasonTimeout)
	second := RenewalRejectedError(fmt.Errorf("wrapped: %w", first), RenewalReasonRejected)
	if second != first {
		t.Fatalf("expected the original renewal envelope to be reused")
	}
	if ErrorMetadata(second)["reason"] != RenewalReasonTimeout {
		t.Fatalf("expected timeout reason to survive")
	}
	if !errors.Is(first, context.DeadlineExceeded) {
		t.Fatalf("expected source to stay in the chain")
	}
}

func TestPredicatesIgnoreForeignErrors(t *testing.T) {
	plain := errors.New("boom")
	for name, predicate := range map[string]func(error) bool{
		"transport":       IsTransportUnavailable,
		"unauthorized":    IsUnauthorized,
		"renewal":         IsRenewalRejected,
		"credentials":     IsInvalidCredentials,
		"unauthenticated": IsUnauthenticated,
	} {
		if predicate(plain) || predicate(nil) {
			t.Fatalf("%s: expected false for foreign errors", name)
		}
	}
	if HTTPStatus(plain) != 0 {
		t.Fatalf("expected zero status for plain errors")
	}
}

func TestSessionErrorMapper(t *testing.T) {
	if sessionErrorMapper(nil) != nil {
		t.Fatalf("expected nil mapping for nil")
	}
	mapped := sessionErrorMapper(errors.New("core: username is required"))
	if mapped.Category != goerrors.CategoryBadInput || mapped.TextCode != SessionErrorBadInput {
		t.Fatalf("expected bad input mapping, got %s/%s", mapped.Category, mapped.TextCode)
	}
	if mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 code, got %d", mapped.Code)
	}

	rich := goerrors.New("denied", goerrors.CategoryAuthz)
	mapped = sessionErrorMapper(rich)
	if mapped.Code != http.StatusForbidden || mapped.TextCode != SessionErrorInternal {
		t.Fatalf("expected envelope defaults for authz error, got %d/%s", mapped.Code, mapped.TextCode)
	}

	kept := InvalidCredentialsError(nil)
	if sessionErrorMapper(kept) != kept {
		t.Fatalf("expected session envelopes to pass through")
	}
}
