package core

import (
	"errors"

	"github.com/vovakirdan/channelhub/internal/channels"
)

// Error codes carried by error events.
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInvalidState = "invalid_state"
	ErrCodeInternal     = "internal"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadStatus      = errors.New("unknown status")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// errorFrom converts a service error into a client-facing error.
// Infrastructure failures are reported without their cause.
func errorFrom(err error) *CoreError {
	var code string
	switch channels.KindOf(err) {
	case channels.KindNotFound:
		code = ErrCodeNotFound
	case channels.KindConflict:
		code = ErrCodeConflict
	case channels.KindForbidden:
		code = ErrCodeForbidden
	case channels.KindInvalidState:
		code = ErrCodeInvalidState
	default:
		code = ErrCodeInternal
	}
	return coreError(code, channels.MessageOf(err))
}
