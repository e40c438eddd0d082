package container

import "errors"

var (
	// ErrNotRegistered is returned when Resolve is called with a key or
	// alias no registration covers.
	ErrNotRegistered = errors.New("component not registered")

	// ErrDuplicateKey is returned when a registration reuses a key or
	// alias that is already taken.
	ErrDuplicateKey = errors.New("duplicate registration key")

	// ErrWrongType is returned by the typed Resolve helper when the
	// resolved instance is not assignable to the requested type.
	ErrWrongType = errors.New("resolved component has wrong type")

	// ErrInvalidRegistration is returned for registrations the container
	// cannot honor, such as a cleanup on a transient or a nil factory.
	ErrInvalidRegistration = errors.New("invalid registration")
)
