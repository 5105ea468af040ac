package transport

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-session/core"
)

var transportTextCodes = map[goerrors.Category]string{
	goerrors.CategoryBadInput:   core.SessionErrorBadInput,
	goerrors.CategoryValidation: core.SessionErrorBadInput,
	goerrors.CategoryExternal:   core.SessionErrorTransportUnavailable,
}

func transportError(message string, category goerrors.Category, code int, metadata map[string]any) error {
	return transportWrapError(nil, category, message, code, metadata)
}

// transportWrapError tags source with the HTTP status the caller should
// surface and the session text code for category. A nil source yields a
// fresh error.
func transportWrapError(source error, category goerrors.Category, message string, code int, metadata map[string]any) error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, category)
	} else {
		err = goerrors.Wrap(source, category, message)
	}
	textCode, ok := transportTextCodes[category]
	if !ok {
		textCode = core.SessionErrorInternal
	}
	err = err.WithCode(code).WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
