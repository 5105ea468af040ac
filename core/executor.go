package core

import (
	"context"
	"net/http"
	"strings"
)

// RequestExecutor issues protected calls and routes eligible unauthorized
// responses through the refresh coordinator.
type RequestExecutor struct {
	transport   Transport
	coordinator *RefreshCoordinator
	detector    UnauthorizedDetector
	endpoints   EndpointsConfig
	obs         *observer
}

func NewRequestExecutor(
	transport Transport,
	coordinator *RefreshCoordinator,
	detector UnauthorizedDetector,
	endpoints EndpointsConfig,
) *RequestExecutor {
	if detector == nil {
		detector = DefaultUnauthorizedDetector
	}
	return &RequestExecutor{
		transport:   transport,
		coordinator: coordinator,
		detector:    detector,
		endpoints:   endpoints,
	}
}

// Do makes the executor usable wherever a Transport is expected.
func (e *RequestExecutor) Do(ctx context.Context, req RequestDescriptor) (Response, error) {
	return e.Execute(ctx, req)
}

// Execute sends req. An unauthorized response on a non-exempt endpoint that
// has not been retried yet waits for a renewal and is replayed once with
// Retried set. Transport failures never trigger a renewal.
func (e *RequestExecutor) Execute(ctx context.Context, req RequestDescriptor) (Response, error) {
	if e == nil || e.transport == nil {
		return Response{}, internalError("core: request executor is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := e.prepare(req)
	if err != nil {
		return Response{}, err
	}

	res, err := e.transport.Do(ctx, req)
	if err != nil {
		e.countRequest(ctx, req, "transport_error")
		if IsTransportUnavailable(err) || hasTextCode(err, SessionErrorBadInput) {
			return Response{}, err
		}
		return Response{}, TransportUnavailableError(err, req)
	}

	if e.detector(res) {
		if IsExempt(req.Endpoint) || req.Retried || e.coordinator == nil {
			e.countRequest(ctx, req, "unauthorized")
			return res, UnauthorizedError(req, res)
		}
		e.countRequest(ctx, req, "renewal_required")
		if err := e.coordinator.Await(ctx); err != nil {
			return Response{}, err
		}
		return e.Execute(ctx, req.withRetried())
	}

	if res.StatusCode >= http.StatusBadRequest {
		e.countRequest(ctx, req, "http_error")
		return res, HTTPError(req, res)
	}
	e.countRequest(ctx, req, "ok")
	return res, nil
}

func (e *RequestExecutor) prepare(req RequestDescriptor) (RequestDescriptor, error) {
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		return req, badInputError("core: request path is required")
	}
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Endpoint == "" {
		req.Endpoint = ClassifyPath(req.Path, e.endpoints)
	}
	return req, nil
}

func (e *RequestExecutor) countRequest(ctx context.Context, req RequestDescriptor, status string) {
	e.obs.recordCounter(ctx, metricRequestTotal, 1, map[string]string{
		"endpoint": string(req.Endpoint),
		"status":   status,
		"retried":  boolTag(req.Retried),
	})
}

func boolTag(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
