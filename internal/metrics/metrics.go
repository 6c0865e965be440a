package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session lifecycle metrics
var (
	// SessionsActive tracks currently registered dial sessions
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fandial_sessions_active",
			Help: "Currently registered dial sessions",
		},
	)

	// DeckEventsTotal tracks inbound device events by event name
	DeckEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fandial_deck_events_total",
			Help: "Inbound device events by event name",
		},
		[]string{"event"},
	)
)

// Write path metrics
var (
	// WritesFlushedTotal tracks debounced config writes that reached the file, by kind
	WritesFlushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fandial_writes_flushed_total",
			Help: "Config file writes flushed by kind (mode/value/curve)",
		},
		[]string{"kind"},
	)

	// WriteFailuresTotal tracks config writes that failed by kind
	WriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fandial_write_failures_total",
			Help: "Config file writes that failed by kind (mode/value/curve)",
		},
		[]string{"kind"},
	)

	// DebounceResetsTotal tracks rotation events that reset a pending debounce timer
	DebounceResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fandial_debounce_resets_total",
			Help: "Rotation events that superseded a pending debounced write",
		},
	)
)

// External process metrics
var (
	// RelaunchesTotal tracks external application relaunch attempts by method
	RelaunchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fandial_relaunches_total",
			Help: "External application relaunch attempts by method (direct/task/script)",
		},
		[]string{"method"},
	)

	// RelaunchFailuresTotal tracks relaunch attempts that failed
	RelaunchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fandial_relaunch_failures_total",
			Help: "External application relaunch attempts that failed",
		},
	)
)

// Display metrics
var (
	// PollRefreshesTotal tracks background display refreshes from the config file
	PollRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fandial_poll_refreshes_total",
			Help: "Background display refreshes from the config file",
		},
	)

	// PollSuppressedTotal tracks poll ticks suppressed by an active interaction
	PollSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fandial_poll_suppressed_total",
			Help: "Poll ticks suppressed by mode selection or a pending edit",
		},
	)

	// AlertsTotal tracks alert cues shown on the device by reason
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fandial_alerts_total",
			Help: "Alert cues shown on the device by reason",
		},
		[]string{"reason"},
	)
)
