// Package metrics exposes Prometheus instrumentation for the governance
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cordon",
		Name:      "evaluations_total",
		Help:      "Verdicts issued, by decision.",
	}, []string{"decision"})

	compositeScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cordon",
		Name:      "composite_score",
		Help:      "Distribution of composite risk scores.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	evaluationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cordon",
		Name:      "evaluation_seconds",
		Help:      "Wall-clock duration of full evaluations.",
		Buckets:   prometheus.DefBuckets,
	})

	evaluatorSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cordon",
		Name:      "evaluator_seconds",
		Help:      "Duration of individual dimension evaluators.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"dimension"})

	policyViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cordon",
		Name:      "policy_violations_total",
		Help:      "Policy violations fired, by severity.",
	}, []string{"severity"})
)

// ObserveEvaluation records one completed verdict.
func ObserveEvaluation(decision string, composite float64, elapsed time.Duration) {
	evaluationsTotal.WithLabelValues(decision).Inc()
	compositeScore.Observe(composite)
	evaluationSeconds.Observe(elapsed.Seconds())
}

// ObserveEvaluator records one dimension evaluator run.
func ObserveEvaluator(dimension string, elapsed time.Duration) {
	evaluatorSeconds.WithLabelValues(dimension).Observe(elapsed.Seconds())
}

// ObservePolicyViolation records one fired policy violation.
func ObservePolicyViolation(severity string) {
	policyViolationsTotal.WithLabelValues(severity).Inc()
}
