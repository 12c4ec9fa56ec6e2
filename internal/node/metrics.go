package node

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "haptic_commands_total",
		Help: "The total number of datagrams processed by the node",
	}, []string{"cmd", "outcome"})

	buzzActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "haptic_buzz_active",
		Help: "Whether the actuation output is currently non-zero",
	})
)
