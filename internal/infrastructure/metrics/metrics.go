// Package metrics provides Prometheus metrics for the tap agent and relay server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/beepcard/beep-tap/internal/domain/tap"
)

var (
	// SessionTransitions tracks tap session phase changes.
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tap_session_transitions_total",
			Help: "Total number of tap session phase transitions",
		},
		[]string{"event", "from_phase", "to_phase"},
	)

	// TapOutcomes tracks resolved taps by result and reason.
	TapOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tap_outcomes_total",
			Help: "Total number of resolved tap attempts",
		},
		[]string{"result", "reason"},
	)

	// ScansIgnored tracks recognizer scans dropped by validation.
	ScansIgnored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tap_scans_ignored_total",
			Help: "Total number of scans ignored by region or format validation",
		},
		[]string{"verdict"},
	)

	// RelayConnects tracks relay dial attempts by result.
	RelayConnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tap_relay_connects_total",
			Help: "Total number of relay connection attempts",
		},
		[]string{"result"},
	)

	// RelayRooms tracks rooms currently open on the relay server.
	RelayRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_rooms_active",
			Help: "Number of rooms with at least one member",
		},
	)

	// RelayClients tracks connected relay clients.
	RelayClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_clients_connected",
			Help: "Number of websocket clients connected to the relay",
		},
	)

	// RelayMessages tracks frames routed by the relay server.
	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Total number of relay frames handled",
		},
		[]string{"event"},
	)

	// CardAPIDuration tracks card manager API latency.
	CardAPIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tap_card_api_duration_seconds",
			Help:    "Duration of card manager API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// HTTPRequests tracks HTTP requests served by the agent and relay server.
	HTTPRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordRelayConnect records the result of a dial attempt.
func RecordRelayConnect(ok bool) {
	if ok {
		RelayConnects.WithLabelValues("connected").Inc()
		return
	}
	RelayConnects.WithLabelValues("failed").Inc()
}

// RecordRelayMessage counts one routed relay frame.
func RecordRelayMessage(event string) {
	RelayMessages.WithLabelValues(event).Inc()
}

// Observer reports coordinator telemetry to Prometheus.
type Observer struct{}

// NewObserver returns a tap.Observer backed by the package metrics.
func NewObserver() *Observer {
	return &Observer{}
}

// Transitioned implements tap.Observer.
func (*Observer) Transitioned(event string, from, to tap.Phase) {
	SessionTransitions.WithLabelValues(event, from.String(), to.String()).Inc()
}

// Resolved implements tap.Observer.
func (*Observer) Resolved(outcome tap.Outcome) {
	TapOutcomes.WithLabelValues(string(outcome.Kind), string(outcome.Reason)).Inc()
}

// ScanIgnored implements tap.Observer.
func (*Observer) ScanIgnored(verdict tap.ScanVerdict) {
	ScansIgnored.WithLabelValues(string(verdict)).Inc()
}
