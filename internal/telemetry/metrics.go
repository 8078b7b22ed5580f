package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"

	OutcomeNew       = "new"
	OutcomeDuplicate = "duplicate"
)

var (
	Registry = prometheus.NewRegistry()

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "messages_total",
			Help:      "Messages read from or written to the harness, by body type.",
		},
		[]string{"direction", "type"},
	)

	BroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "broadcasts_total",
			Help:      "Broadcast values received, split into first-seen and duplicate.",
		},
		[]string{"node", "outcome"},
	)

	FloodsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "flood_messages_total",
			Help:      "Broadcast messages forwarded to neighbors.",
		},
		[]string{"node"},
	)

	CounterValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "counter_value",
			Help:      "Current grow-only counter value per node.",
		},
		[]string{"node"},
	)

	Nodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "nodes",
			Help:      "Nodes initialized in this process.",
		},
	)

	// ---- Process / build info ----
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version and git_sha).",
		},
		[]string{"version", "git_sha"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(MessagesTotal, BroadcastsTotal, FloodsTotal, CounterValue, Nodes, buildInfo, uptime)
}

// MetricsHandler exposes the registry. Mount it with mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup, e.g. with ldflags-provided values.
func SetBuildInfo(version, gitSHA string) {
	buildInfo.WithLabelValues(version, gitSHA).Set(1)
}

// ObserveMessage counts one message crossing the harness boundary.
func ObserveMessage(direction, typ string) {
	MessagesTotal.WithLabelValues(direction, typ).Inc()
}
