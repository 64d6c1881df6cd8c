// Package metrics exposes Prometheus collectors for the pusher service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal           *prometheus.CounterVec
	deliveryAttemptsTotal *prometheus.CounterVec
	deadLettersTotal      prometheus.Counter
	unknownChannelTotal   prometheus.Counter
	breakerState          prometheus.Gauge
	processingSeconds     prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		eventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docpusher_events_total",
				Help: "Total number of consumed events, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		deliveryAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docpusher_delivery_attempts_total",
				Help: "Total number of archive push attempts, labeled by result.",
			},
			[]string{"result"},
		)

		deadLettersTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "docpusher_dead_letters_total",
				Help: "Total number of events routed to the dead-letter sink.",
			},
		)

		unknownChannelTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "docpusher_unknown_channel_total",
				Help: "Total number of events classified via the default entry.",
			},
		)

		breakerState = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "docpusher_breaker_state",
				Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
			},
		)

		processingSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docpusher_processing_seconds",
				Help:    "Histogram of end-to-end message processing latency.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)
	})
}

// IncEvent counts one finished event by outcome
// (delivered, dead_lettered, skipped, redelivered).
func IncEvent(outcome string) {
	if eventsTotal != nil {
		eventsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncDeliveryAttempt counts one push attempt by result
// (success, transient, permanent, circuit_open).
func IncDeliveryAttempt(result string) {
	if deliveryAttemptsTotal != nil {
		deliveryAttemptsTotal.WithLabelValues(result).Inc()
	}
}

// IncDeadLetter counts one dead-lettered event.
func IncDeadLetter() {
	if deadLettersTotal != nil {
		deadLettersTotal.Inc()
	}
}

// IncUnknownChannel counts one default-classified event.
func IncUnknownChannel() {
	if unknownChannelTotal != nil {
		unknownChannelTotal.Inc()
	}
}

// SetBreakerState records the current circuit state.
func SetBreakerState(state float64) {
	if breakerState != nil {
		breakerState.Set(state)
	}
}

// ObserveProcessing records one end-to-end processing duration.
func ObserveProcessing(seconds float64) {
	if processingSeconds != nil {
		processingSeconds.Observe(seconds)
	}
}
