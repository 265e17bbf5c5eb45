package auth

import "errors"

var (
	// ErrNoActor is returned when an operation needs an actor but none is set.
	ErrNoActor = errors.New("no actor set")

	// ErrStaleLoad is returned by a permission load whose result was dropped
	// because the actor changed while it was in flight.
	ErrStaleLoad = errors.New("permission load superseded by a newer actor")

	// ErrUnknownProfileType is returned when a profile type string is not supported.
	ErrUnknownProfileType = errors.New("unknown profile type")

	// ErrNoRoleSource is returned when the engine has to load permissions without a source.
	ErrNoRoleSource = errors.New("role source is nil")
)
