package nest

import "errors"

// Domain-specific errors for the Nest client.
var (
	// ErrMissingToken is returned by New without an access token.
	ErrMissingToken = errors.New("nest: access token is required")

	// ErrInvalidURL is returned by New when the API URL cannot be parsed.
	ErrInvalidURL = errors.New("nest: invalid api url")

	// ErrUpdateFailed is returned when the API rejects a write.
	ErrUpdateFailed = errors.New("nest: update failed")

	// ErrStreamFailed is returned when the stream cannot be opened.
	ErrStreamFailed = errors.New("nest: stream failed")

	// ErrAuthRevoked is returned when the server rejects or revokes the token.
	ErrAuthRevoked = errors.New("nest: auth revoked")

	// ErrStreamCancelled is returned when the server cancels the stream.
	ErrStreamCancelled = errors.New("nest: stream cancelled by server")

	// ErrInvalidPayload is returned for an event that is not valid JSON.
	ErrInvalidPayload = errors.New("nest: invalid event payload")

	// ErrTooManyRedirects is returned after following ten redirects.
	ErrTooManyRedirects = errors.New("nest: too many redirects")
)
