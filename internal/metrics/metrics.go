package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus metrics for the Tallyman service
type Metrics struct {
	// Entity command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	ActorsActive    *prometheus.GaugeVec

	// Presence metrics
	ViewersActive *prometheus.GaugeVec

	// Feed metrics
	FeedBuilds        *prometheus.CounterVec
	FeedBuildDuration *prometheus.HistogramVec

	// WebSocket Hub metrics
	HubConnections *prometheus.GaugeVec
	HubMessages    *prometheus.CounterVec

	// Kafka metrics
	KafkaMessages *prometheus.CounterVec
	KafkaDuration *prometheus.HistogramVec
	KafkaLag      *prometheus.GaugeVec
}
