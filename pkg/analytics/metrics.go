package analytics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce        sync.Once
	metricsInitialized bool
	deliveries         *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modscf",
			Subsystem: "analytics",
			Name:      "deliveries_total",
			Help:      "Number of analytics capture outcomes",
		}, []string{"outcome"})

		if err := prometheus.Register(deliveries); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					deliveries = existing
				}
			}
		}
		metricsInitialized = true
	})
}

func recordDelivery(outcome string) {
	if !metricsInitialized {
		return
	}
	deliveries.With(prometheus.Labels{"outcome": outcome}).Inc()
}
