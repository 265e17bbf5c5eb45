package handler

import "errors"

const (
	// APIPath is the prefix of every bridge endpoint.
	APIPath = "/api"

	// CheckAlivePath answers load balancer and supervisor probes.
	CheckAlivePath = "/checkalive"

	// MetricsPath serves the prometheus metrics.
	MetricsPath = "/metrics"
)

// ErrNilDeps is returned by Init if router, cfg or a required dependency is nil.
var ErrNilDeps = errors.New("router, cfg or a required dependency is nil")
