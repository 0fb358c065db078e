package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PostsValidated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobmod",
			Name:      "posts_validated_total",
			Help:      "Job posts validated, by event and outcome",
		},
		[]string{"event", "outcome"},
	)
	Rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobmod",
			Name:      "rejections_total",
			Help:      "Posts removed by the rejection protocol",
		},
		[]string{"event"},
	)
	Reports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobmod",
			Name:      "reports_total",
			Help:      "Moderation reports by reason and delivery outcome",
		},
		[]string{"reason", "outcome"},
	)
	Sweeps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobmod",
			Name:      "sweeps_total",
			Help:      "Scheduled sweep runs",
		},
		[]string{"task", "outcome"},
	)
	ThreadsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobmod",
			Name:      "threads_closed_total",
			Help:      "Enforcement threads closed, by cause",
		},
		[]string{"cause"},
	)
)

var registerOnce sync.Once

// MustRegister adds the collectors to the default registry. Safe to call more than once.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PostsValidated, Rejections, Reports, Sweeps, ThreadsClosed)
	})
}
