package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SessionErrorBadInput             = "SESSION_BAD_INPUT"
	SessionErrorTransportUnavailable = "SESSION_TRANSPORT_UNAVAILABLE"
	SessionErrorUnauthorized         = "SESSION_UNAUTHORIZED"
	SessionErrorRenewalRejected      = "SESSION_RENEWAL_REJECTED"
	SessionErrorInvalidCredentials   = "SESSION_INVALID_CREDENTIALS"
	SessionErrorUnauthenticated      = "SESSION_UNAUTHENTICATED"
	SessionErrorHTTP                 = "SESSION_HTTP_ERROR"
	SessionErrorInternal             = "SESSION_INTERNAL_ERROR"
)

const (
	RenewalReasonRejected = "rejected"
	RenewalReasonTimeout  = "timeout"
)

// TransportUnavailableError reports that no response was obtained at all.
func TransportUnavailableError(source error, req RequestDescriptor) *goerrors.Error {
	return withMetadata(
		wrapOrNew(source, goerrors.CategoryExternal, "core: transport unavailable").
			WithCode(http.StatusBadGateway).
			WithTextCode(SessionErrorTransportUnavailable),
		requestMetadata(req),
	)
}

// UnauthorizedError is returned for unauthorized responses that are not
// eligible for renewal: exempt endpoints and already retried requests.
func UnauthorizedError(req RequestDescriptor, res Response) *goerrors.Error {
	metadata := requestMetadata(req)
	metadata["status_code"] = res.StatusCode
	metadata["retried"] = req.Retried
	return withMetadata(
		goerrors.New("core: unauthorized", goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode(SessionErrorUnauthorized),
		metadata,
	)
}

// RenewalRejectedError wraps the failure of a renewal call. Every waiter queued
// behind that renewal receives it.
func RenewalRejectedError(source error, reason string) *goerrors.Error {
	var rich *goerrors.Error
	if goerrors.As(source, &rich) && rich.TextCode == SessionErrorRenewalRejected {
		return rich
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = RenewalReasonRejected
	}
	return withMetadata(
		wrapOrNew(source, goerrors.CategoryAuth, "core: session renewal rejected").
			WithCode(http.StatusUnauthorized).
			WithTextCode(SessionErrorRenewalRejected),
		map[string]any{"reason": reason, "endpoint": string(EndpointRenew)},
	)
}

func InvalidCredentialsError(source error) *goerrors.Error {
	return withMetadata(
		wrapOrNew(source, goerrors.CategoryAuth, "core: invalid credentials").
			WithCode(http.StatusUnauthorized).
			WithTextCode(SessionErrorInvalidCredentials),
		map[string]any{"endpoint": string(EndpointAuthenticate)},
	)
}

func UnauthenticatedError(source error) *goerrors.Error {
	return withMetadata(
		wrapOrNew(source, goerrors.CategoryAuth, "core: no authenticated session").
			WithCode(http.StatusUnauthorized).
			WithTextCode(SessionErrorUnauthenticated),
		map[string]any{"endpoint": string(EndpointIdentity)},
	)
}

// HTTPError carries any non-unauthorized error status untouched.
func HTTPError(req RequestDescriptor, res Response) *goerrors.Error {
	metadata := requestMetadata(req)
	metadata["status_code"] = res.StatusCode
	message := "core: request failed with status " + http.StatusText(res.StatusCode)
	if http.StatusText(res.StatusCode) == "" {
		message = "core: request failed"
	}
	return withMetadata(
		goerrors.New(message, httpStatusCategory(res.StatusCode)).
			WithCode(res.StatusCode).
			WithTextCode(SessionErrorHTTP),
		metadata,
	)
}

func badInputError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(SessionErrorBadInput)
}

func internalError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(SessionErrorInternal)
}

func IsTransportUnavailable(err error) bool {
	return hasTextCode(err, SessionErrorTransportUnavailable)
}

func IsUnauthorized(err error) bool {
	return hasTextCode(err, SessionErrorUnauthorized)
}

func IsRenewalRejected(err error) bool {
	return hasTextCode(err, SessionErrorRenewalRejected)
}

func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, SessionErrorInvalidCredentials)
}

func IsUnauthenticated(err error) bool {
	return hasTextCode(err, SessionErrorUnauthenticated)
}

// HTTPStatus returns the status code carried by err, or 0.
func HTTPStatus(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Code
	}
	return 0
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}

func sessionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSessionErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		return ensureSessionErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryBadInput).
			WithTextCode(SessionErrorBadInput))
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSessionErrorEnvelope(mapped)
}

func ensureSessionErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = categoryHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSessionTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSessionTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SessionErrorBadInput
	case goerrors.CategoryAuth:
		return SessionErrorUnauthenticated
	case goerrors.CategoryExternal:
		return SessionErrorTransportUnavailable
	default:
		return SessionErrorInternal
	}
}

func categoryHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func httpStatusCategory(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return goerrors.CategoryBadInput
	case status >= 500:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryOperation
	}
}

func requestMetadata(req RequestDescriptor) map[string]any {
	metadata := map[string]any{}
	if req.Endpoint != "" {
		metadata["endpoint"] = string(req.Endpoint)
	}
	if path := strings.TrimSpace(req.Path); path != "" {
		metadata["path"] = path
	}
	if method := strings.TrimSpace(req.Method); method != "" {
		metadata["method"] = strings.ToUpper(method)
	}
	return metadata
}

func wrapOrNew(source error, category goerrors.Category, message string) *goerrors.Error {
	if source == nil {
		return goerrors.New(message, category)
	}
	return goerrors.Wrap(source, category, message)
}

func withMetadata(err *goerrors.Error, metadata map[string]any) *goerrors.Error {
	if err == nil || len(metadata) == 0 {
		return err
	}
	err.WithMetadata(metadata)
	return err
}

// ErrorMetadata returns the metadata attached to a go-errors envelope in err's
// chain, or nil.
func ErrorMetadata(err error) map[string]any {
	return errorMetadata(err)
}

func errorMetadata(err error) map[string]any {
	var rich *goerrors.Error
	if err == nil || !goerrors.As(err, &rich) {
		return nil
	}
	return rich.Metadata
}
