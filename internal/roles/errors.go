package roles

import "errors"

var (
	// ErrSystemRole is the cause of the ValidationError returned when a system role is modified.
	ErrSystemRole = errors.New("system roles can not be modified")

	// ErrBackendNil is returned by New without a backend.
	ErrBackendNil = errors.New("roles backend is nil")
)
