package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courtroom"

// Connection Metrics
var (
	// ConnectionsCurrent tracks open connections by transport (tcp/ws)
	ConnectionsCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_current",
			Help:      "Currently open connections by transport",
		},
		[]string{"transport"},
	)

	// ConnectionsTotal tracks accepted connections by transport
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total accepted connections by transport",
		},
		[]string{"transport"},
	)

	// DisconnectsTotal tracks disconnects by reason
	DisconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Total disconnects by reason",
		},
		[]string{"reason"},
	)
)

// Protocol Metrics
var (
	// FramesTotal tracks inbound frames by keyword
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total inbound frames by keyword",
		},
		[]string{"keyword"},
	)

	// FramesDropped tracks frames that were ignored (unknown, invalid, undecodable)
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total inbound frames dropped by reason",
		},
		[]string{"reason"},
	)

	// ErrorsTotal tracks errors surfaced by dispatch by kind (domain/internal/protocol)
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Total errors caught at dispatch by kind",
		},
		[]string{"kind"},
	)
)

// Event Loop Metrics
var (
	// LoopStalls tracks health checks the event loop failed to answer in time
	LoopStalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_stalls_total",
			Help:      "Total event loop health checks that timed out",
		},
	)

	// TimersFired tracks timer expiries by owner (area/hub/minigame)
	TimersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_fired_total",
			Help:      "Total timer expiries by owner",
		},
		[]string{"owner"},
	)

	// PlayersCurrent tracks joined players per hub
	PlayersCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_current",
			Help:      "Current joined players by hub",
		},
		[]string{"hub"},
	)
)
