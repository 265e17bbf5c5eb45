package call

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitions = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "call_transitions_total",
			Help: "Number of call controller transitions, differentiated by target phase.",
		},
		[]string{"phase"},
	)

	events = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "call_events_total",
			Help: "Number of pushed call events, differentiated by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	heartbeatFailures = promauto.NewCounter( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "call_heartbeat_failures_total",
			Help: "Number of failed presence heartbeats.",
		},
	)
)
