package channels

import "errors"

// Kind classifies a domain error.
type Kind int

const (
	// KindInternal covers infrastructure failures.
	KindInternal Kind = iota
	// KindNotFound means the channel or user does not exist.
	KindNotFound
	// KindConflict means the write would duplicate existing state.
	KindConflict
	// KindForbidden means the actor lacks the privilege for the operation.
	KindForbidden
	// KindInvalidState means the operation does not apply to the current state.
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

// Error is a domain error carrying a human-readable message for the client.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf reports the kind of err; errors that are not domain errors are internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "Internal server error."
}

var (
	ErrChannelNotFound    = newError(KindNotFound, "Channel does not exist.")
	ErrUserNotFound       = newError(KindNotFound, "User does not exist.")
	ErrInvalidChannelName = newError(KindInvalidState, "Channel name is required.")
	ErrEmptyMessage       = newError(KindInvalidState, "Message content is empty.")

	ErrPrivateChannel = newError(KindForbidden, "Private channel, access denied.")
	ErrBanned         = newError(KindForbidden, "You are banned from this channel.")
	ErrNotMember      = newError(KindForbidden, "You are not a member of this channel.")
	ErrNotJoined      = newError(KindInvalidState, "You are not in this channel.")

	ErrAdminOnlyInvite = newError(KindForbidden, "Only admins can invite users.")
	ErrAdminOnlyKick   = newError(KindForbidden, "Only admins can kick users.")
	ErrAdminOnlyRevoke = newError(KindForbidden, "Only admins can revoke users.")

	ErrAlreadyMember   = newError(KindConflict, "User is already in the channel.")
	ErrTargetNotMember = newError(KindInvalidState, "User is not in the channel.")
	ErrTargetAdmin     = newError(KindForbidden, "The channel admin cannot be kicked or revoked.")
	ErrSelfTarget      = newError(KindInvalidState, "You cannot do that to yourself.")
	ErrAlreadyBanned   = newError(KindInvalidState, "User is already banned from this channel.")
)
