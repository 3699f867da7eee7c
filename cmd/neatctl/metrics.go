package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// metrics are kept in a private registry so that a run can print them on exit.
type metrics struct {
	registry *prometheus.Registry

	mutations   *prometheus.CounterVec
	generations prometheus.Counter
	species     prometheus.Gauge
	bestFitness prometheus.Gauge
	distance    prometheus.Histogram
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "neat_mutations_total",
			Help: "Mutations applied to offspring by operator and outcome",
		}, []string{"kind", "applied"}),
		generations: factory.NewCounter(prometheus.CounterOpts{
			Name: "neat_generations_total",
			Help: "Generations reproduced",
		}),
		species: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neat_species",
			Help: "Species in the current generation",
		}),
		bestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neat_best_fitness",
			Help: "Best fitness seen so far",
		}),
		distance: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "neat_mean_compatibility_distance",
			Help:    "Mean compatibility distance computed during speciation",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13},
		}),
	}
}

// write prints every metric in the Prometheus text exposition format.
func (m *metrics) write(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
