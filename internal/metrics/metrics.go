// Package metrics exposes the process counters served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wirechat_ws_connections",
		Help: "Currently open WebSocket connections.",
	})

	WSFramesOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wirechat_ws_frames_out_total",
		Help: "Frames written to WebSocket clients.",
	})

	BrokerPublishes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wirechat_broker_publishes_total",
		Help: "Events published to the broker.",
	})

	BrokerPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wirechat_broker_publish_errors_total",
		Help: "Broker publish failures (delivery fell back to local fan-out).",
	})

	BrokerLocalFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wirechat_broker_local_fallbacks_total",
		Help: "Events delivered local-only because no broker was reachable.",
	})

	// Broker subscriptions are held for the process lifetime; this gauge is
	// the leak diagnostic for the channel-handle map.
	SubscribedChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wirechat_broker_subscribed_channels",
		Help: "Distinct broker channels with a live subscription handle.",
	})

	PresenceBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wirechat_presence_broadcasts_total",
		Help: "Presence transitions broadcast, by status.",
	}, []string{"status"})
)

// Handler serves the Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
