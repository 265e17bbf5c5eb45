package daemon

import "errors"

var (
	// ErrConfigNil is returned by New without a config.
	ErrConfigNil = errors.New("config is nil")

	// ErrNoProfileSource is returned when neither a static profile nor a backend is available.
	ErrNoProfileSource = errors.New("no profile source")
)
