package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-session/core"
	"github.com/google/uuid"
)

const KindREST = "rest"

const defaultRESTClientTimeout = 30 * time.Second
const defaultRESTResponseBodyLimit int64 = 10 << 20 // 10 MiB
const defaultRequestIDHeader = "X-Request-ID"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CredentialAttacher decorates outbound requests with ambient credentials. The
// default REST transport relies on the client's cookie jar and needs none.
type CredentialAttacher interface {
	Attach(req *http.Request) error
}

type CredentialAttacherFunc func(req *http.Request) error

func (f CredentialAttacherFunc) Attach(req *http.Request) error {
	return f(req)
}

// RESTTransport issues RequestDescriptors as HTTP requests relative to BaseURL.
// Every received status is returned as a response; only the absence of a
// response is an error.
type RESTTransport struct {
	Client               HTTPDoer
	BaseURL              string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
	RequestTimeout       time.Duration
	Attacher             CredentialAttacher
	RequestIDHeader      string
}

func NewRESTTransport(baseURL string, client HTTPDoer) *RESTTransport {
	if client == nil {
		client = NewCookieClient(defaultRESTClientTimeout)
	}
	return &RESTTransport{
		Client:               client,
		BaseURL:              strings.TrimSpace(baseURL),
		DefaultHeaders:       map[string]string{"Accept": "application/json"},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
		RequestIDHeader:      defaultRequestIDHeader,
	}
}

// NewRESTTransportFromConfig builds a transport for cfg. A nil client gets a
// cookie-jar client so the session cookies set by the server ride along.
func NewRESTTransportFromConfig(cfg core.Config, client HTTPDoer) *RESTTransport {
	if client == nil {
		client = NewCookieClient(0)
	}
	transport := NewRESTTransport(cfg.BaseURL, client)
	transport.RequestTimeout = cfg.Transport.RequestTimeout
	if cfg.Transport.MaxResponseBodyBytes > 0 {
		transport.MaxResponseBodyBytes = cfg.Transport.MaxResponseBodyBytes
	}
	return transport
}

// RESTTransportFactory is a core.TransportFactory building a cookie-jar REST
// transport from the resolved configuration.
func RESTTransportFactory(cfg core.Config) (core.Transport, error) {
	timeout := cfg.Transport.RequestTimeout
	if timeout <= 0 {
		timeout = core.DefaultRequestTimeout
	}
	return NewRESTTransportFromConfig(cfg, NewCookieClient(timeout)), nil
}

// NewCookieClient returns an http.Client with an in-memory cookie jar.
func NewCookieClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar, Timeout: timeout}
}

func (*RESTTransport) Kind() string {
	return KindREST
}

func (t *RESTTransport) Do(ctx context.Context, req core.RequestDescriptor) (core.Response, error) {
	if t == nil || t.Client == nil {
		return core.Response{}, transportError(
			"transport: rest transport requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindREST},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := t.resolveURL(req.Path)
	if err != nil {
		return core.Response{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "path": strings.TrimSpace(req.Path)},
		)
	}

	query := target.Query()
	for key, value := range req.Query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		query.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	target.RawQuery = query.Encode()

	requestCtx := ctx
	cancel := func() {}
	if t.RequestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, t.RequestTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target.String(), bytes.NewReader(req.Body))
	if err != nil {
		return core.Response{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "method": method, "url": target.String()},
		)
	}
	for key, value := range t.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if header := strings.TrimSpace(t.RequestIDHeader); header != "" && httpReq.Header.Get(header) == "" {
		httpReq.Header.Set(header, uuid.NewString())
	}
	if t.Attacher != nil {
		if err := t.Attacher.Attach(httpReq); err != nil {
			return core.Response{}, transportWrapError(
				err,
				goerrors.CategoryInternal,
				"transport: attach credentials",
				http.StatusInternalServerError,
				map[string]any{"adapter": KindREST, "endpoint": string(req.Endpoint)},
			)
		}
	}

	httpRes, err := t.Client.Do(httpReq)
	if err != nil {
		return core.Response{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"adapter": KindREST, "method": method, "url": target.String()},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := t.MaxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultRESTResponseBodyLimit
	}
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.Response{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"adapter": KindREST, "status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > maxBodyBytes {
		return core.Response{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"adapter":          KindREST,
				"status_code":      httpRes.StatusCode,
				"response_limit_b": maxBodyBytes,
			},
		)
	}

	return core.Response{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
	}, nil
}

func (t *RESTTransport) resolveURL(path string) (*url.URL, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("transport: request path is required")
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() || strings.TrimSpace(t.BaseURL) == "" {
		return ref, nil
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(t.BaseURL), "/") + "/")
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(&url.URL{
		Path:     strings.TrimLeft(ref.Path, "/"),
		RawQuery: ref.RawQuery,
	}), nil
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.Transport = (*RESTTransport)(nil)
