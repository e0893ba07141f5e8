package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates an illegal upload batch state change.
	ErrInvalidTransition = errors.New("invalid batch state transition")

	// Staging Errors.

	// ErrStaging indicates the local store rejected a provisional write.
	// The batch is aborted before any remote call.
	ErrStaging = errors.New("staging failed")

	// ErrPromotion indicates the remote accepted a batch but local promotion failed.
	ErrPromotion = errors.New("promotion failed")

	// Remote Errors.

	// ErrRemoteUnavailable indicates a transport failure or server error.
	ErrRemoteUnavailable = errors.New("indexing service unavailable")

	// ErrUploadRejected indicates the service answered success=false.
	ErrUploadRejected = errors.New("upload rejected")

	// ErrProtocol indicates an unusable response body, including a success
	// response that omits the per-file detail needed for promotion.
	ErrProtocol = errors.New("protocol violation")

	// ErrUnauthorized indicates the user identity was refused.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the service asked the client to slow down.
	ErrRateLimited = errors.New("rate limited")

	// Conversation Errors.

	// ErrSessionMissing indicates an append against a session that was never created.
	ErrSessionMissing = errors.New("session does not exist")
)

// IsRemoteFailure reports whether err is a network or protocol failure that
// triggers a batch rollback.
func IsRemoteFailure(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable) ||
		errors.Is(err, ErrUploadRejected) ||
		errors.Is(err, ErrProtocol) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrRateLimited)
}
