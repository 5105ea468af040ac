package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-session/core"
)

// AuthClient implements core.AuthAPI against the HTTP auth endpoints: a
// form-encoded login, a cookie refresh, a JSON identity probe and a logout.
type AuthClient struct {
	calls     core.Transport
	renewals  core.Transport
	endpoints core.EndpointsConfig
}

// NewAuthClient builds a client. calls should be the request executor so an
// expired identity probe renews transparently; renewals must bypass it.
func NewAuthClient(calls core.Transport, renewals core.Transport, endpoints core.EndpointsConfig) *AuthClient {
	if renewals == nil {
		renewals = calls
	}
	return &AuthClient{calls: calls, renewals: renewals, endpoints: endpoints}
}

// AuthClientFactory plugs AuthClient into core.WithAuthAPIFactory.
func AuthClientFactory(calls core.Transport, renewals core.Transport, cfg core.Config) (core.AuthAPI, error) {
	if calls == nil {
		return nil, transportError(
			"transport: auth client requires a transport",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	return NewAuthClient(calls, renewals, cfg.Endpoints), nil
}

type identityPayload struct {
	Sub  json.RawMessage `json:"sub"`
	Role string          `json:"role"`
}

func (c *AuthClient) Authenticate(ctx context.Context, credentials core.Credentials) error {
	if c == nil || c.calls == nil {
		return transportError("transport: auth client is not configured", goerrors.CategoryInternal, http.StatusInternalServerError, nil)
	}
	form := url.Values{}
	form.Set("username", credentials.Username)
	form.Set("password", credentials.Password)
	_, err := c.calls.Do(ctx, core.RequestDescriptor{
		Endpoint: core.EndpointAuthenticate,
		Method:   http.MethodPost,
		Path:     c.endpoints.Authenticate,
		Headers:  map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:     []byte(form.Encode()),
	})
	if err != nil {
		if core.IsUnauthorized(err) {
			return core.InvalidCredentialsError(err)
		}
		return err
	}
	return nil
}

func (c *AuthClient) Renew(ctx context.Context) error {
	if c == nil || c.renewals == nil {
		return core.RenewalRejectedError(nil, core.RenewalReasonRejected)
	}
	req := core.RequestDescriptor{
		Endpoint: core.EndpointRenew,
		Method:   http.MethodPost,
		Path:     c.endpoints.Renew,
	}
	res, err := c.renewals.Do(ctx, req)
	if err != nil {
		return core.RenewalRejectedError(err, core.RenewalReasonRejected)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return core.RenewalRejectedError(core.HTTPError(req, res), core.RenewalReasonRejected)
	}
	return nil
}

func (c *AuthClient) Identity(ctx context.Context) (core.SessionIdentity, error) {
	if c == nil || c.calls == nil {
		return core.SessionIdentity{}, core.UnauthenticatedError(nil)
	}
	res, err := c.calls.Do(ctx, core.RequestDescriptor{
		Endpoint: core.EndpointIdentity,
		Method:   http.MethodGet,
		Path:     c.endpoints.Identity,
	})
	if err != nil {
		if core.IsRenewalRejected(err) || core.IsTransportUnavailable(err) {
			return core.SessionIdentity{}, err
		}
		return core.SessionIdentity{}, core.UnauthenticatedError(err)
	}

	var payload identityPayload
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return core.SessionIdentity{}, core.UnauthenticatedError(
			transportWrapError(err, goerrors.CategoryBadInput, "transport: decode identity payload", http.StatusBadGateway, nil),
		)
	}
	subject, err := decodeSubject(payload.Sub)
	if err != nil {
		return core.SessionIdentity{}, core.UnauthenticatedError(err)
	}
	identity, err := core.NewSessionIdentity(subject, payload.Role)
	if err != nil {
		return core.SessionIdentity{}, core.UnauthenticatedError(err)
	}
	return identity, nil
}

func (c *AuthClient) Terminate(ctx context.Context) error {
	if c == nil || c.calls == nil {
		return nil
	}
	_, err := c.calls.Do(ctx, core.RequestDescriptor{
		Endpoint: core.EndpointTerminate,
		Method:   http.MethodPost,
		Path:     c.endpoints.Terminate,
	})
	return err
}

// decodeSubject accepts the subject as a JSON string or number.
func decodeSubject(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("transport: identity payload has no subject")
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		if _, err := strconv.ParseFloat(number.String(), 64); err == nil {
			return strings.TrimSpace(number.String()), nil
		}
	}
	return "", fmt.Errorf("transport: identity subject must be a string or number")
}

var (
	_ core.AuthAPI        = (*AuthClient)(nil)
	_ core.AuthAPIFactory = AuthClientFactory
)
