package domain

import "errors"

var (
	// Connection-level, fatal: the transport session is closed.
	ErrUnauthorized = errors.New("unauthorized")

	// Per-operation, reported only to the initiating connection.
	ErrNotAuthorized      = errors.New("not authorized to join room")
	ErrNotMember          = errors.New("not a member of room")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotFound           = errors.New("not found")

	ErrInvalidRoomID      = errors.New("invalid room id")
	ErrRoomNotFound       = errors.New("room not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPostNotFound       = errors.New("post not found")
)

// ErrorCode maps a domain error to its wire code. Unknown errors are
// reported as internal so storage details never leak to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrNotMember):
		return "not_member"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrUserNotFound), errors.Is(err, ErrPostNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
