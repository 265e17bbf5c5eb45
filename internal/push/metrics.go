package push

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connections = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "push_connections_total",
			Help: "Number of push connection attempts, differentiated by result.",
		},
		[]string{"result"},
	)

	received = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "push_events_total",
			Help: "Number of push frames received, differentiated by kind.",
		},
		[]string{"kind"},
	)
)
