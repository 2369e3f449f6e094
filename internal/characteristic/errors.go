package characteristic

import "errors"

// Domain-specific errors for characteristic containers.
var (
	// ErrUnknownCharacteristic is returned for an ID the container does not hold.
	ErrUnknownCharacteristic = errors.New("characteristic: unknown characteristic")

	// ErrReadOnly is returned when writing a characteristic with no set handler.
	ErrReadOnly = errors.New("characteristic: read-only")

	// ErrNoGetHandler is returned by Fetch before OnGet has been called.
	ErrNoGetHandler = errors.New("characteristic: no get handler")

	// ErrInvalidValue is returned when a written value has the wrong type.
	ErrInvalidValue = errors.New("characteristic: invalid value")
)
