package evolve

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusReporter exports generation summaries as Prometheus metrics.
type PrometheusReporter struct {
	generations prometheus.Counter
	degenerate  prometheus.Counter
	generation  prometheus.Gauge
	bestScore   prometheus.Gauge
	meanScore   prometheus.Gauge
	steps       prometheus.Gauge
}

// NewPrometheusReporter creates the metrics and registers them on reg.
func NewPrometheusReporter(reg prometheus.Registerer, namespace string) (*PrometheusReporter, error) {
	r := &PrometheusReporter{
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Number of completed generations.",
		}),
		degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_generations_total",
			Help:      "Generations whose total score was zero.",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Index of the generation currently running.",
		}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_score",
			Help:      "Best raw score of the last completed generation.",
		}),
		meanScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_score",
			Help:      "Mean raw score of the last completed generation.",
		}),
		steps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_steps",
			Help:      "Simulation steps of the last completed generation.",
		}),
	}
	for _, c := range []prometheus.Collector{r.generations, r.degenerate, r.generation, r.bestScore, r.meanScore, r.steps} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register evolution metrics: %w", err)
		}
	}
	return r, nil
}

// StartGeneration records the running generation.
func (r *PrometheusReporter) StartGeneration(generation int) {
	r.generation.Set(float64(generation))
}

// EndGeneration records the finished generation's summary.
func (r *PrometheusReporter) EndGeneration(stats GenerationStats) {
	r.generations.Inc()
	if stats.Degenerate {
		r.degenerate.Inc()
	}
	r.bestScore.Set(stats.BestScore)
	r.meanScore.Set(stats.MeanScore)
	r.steps.Set(float64(stats.Steps))
}
