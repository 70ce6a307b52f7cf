package auth

import "errors"

// Failure kinds auth operations return. Backend failures are surfaced as the
// *api.Error the client produced, wrapped with the operation name.
var (
	// ErrRateLimited means the local login throttle tripped; no network
	// call was made.
	ErrRateLimited = errors.New("too many login attempts, try again later")

	// ErrInvalidToken means the backend handed us a token that failed
	// client-side validation (malformed or already expired).
	ErrInvalidToken = errors.New("received token is invalid")

	// ErrNoRefreshToken means a refresh was requested with no valid stored
	// refresh token.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrMalformedToken means a token could not be decoded at all.
	ErrMalformedToken = errors.New("malformed token")
)
