package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики grid. Регистрируются в default registry; воркер отдаёт их
// через promhttp на /metrics.
var (
	// JobsSubmitted — количество отправленных jobs по типу.
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgrid_jobs_submitted_total",
		Help: "Number of jobs submitted to the grid",
	}, []string{"type"})

	// JobsClaimed — количество захваченных jobs по типу.
	JobsClaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgrid_jobs_claimed_total",
		Help: "Number of jobs claimed by this worker",
	}, []string{"type"})

	// JobsCompleted — завершённые jobs по типу и терминальному статусу.
	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgrid_jobs_completed_total",
		Help: "Number of jobs finished by this worker",
	}, []string{"type", "status"})

	// JobsSkippedAffinity — jobs, пропущенные из-за несовпадения hints.
	JobsSkippedAffinity = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowgrid_jobs_skipped_affinity_total",
		Help: "Number of pending jobs skipped due to affinity hints",
	})

	// JobDuration — длительность выполнения jobs по типу.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowgrid_job_duration_seconds",
		Help:    "Job execution duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	// PlansExecuted — выполненные планы по режиму и исходу.
	PlansExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgrid_plans_executed_total",
		Help: "Number of plan executions",
	}, []string{"mode", "status"})
)
