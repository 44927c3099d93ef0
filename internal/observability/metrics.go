package observability

// Prometheus collectors for the acquisition pipeline. They are registered on
// the default registry, so the HTTP /metrics endpoint exposes them alongside
// the request metrics.

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// scrapeJobs counts finished jobs by result ("success" or "failure").
	scrapeJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_scrape_jobs_total",
			Help: "Total number of scrape jobs by result.",
		},
		[]string{"result"},
	)

	// scrapeJobDuration records wall time per job, recovery included.
	scrapeJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ratings_scrape_job_duration_seconds",
			Help:    "Duration of scrape jobs in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"result"},
	)

	// scrapeFailures counts failed jobs by the state they failed in.
	scrapeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_scrape_failures_total",
			Help: "Failed scrape jobs by failing stage.",
		},
		[]string{"stage"},
	)

	scrapeBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ratings_scrape_batches_total",
			Help: "Total number of settled batches.",
		},
	)

	browserSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratings_browser_sessions",
			Help: "Browser sessions currently open.",
		},
	)

	// persistErrors counts result writes that failed, by kind ("rating" or "failure").
	persistErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_persist_errors_total",
			Help: "Result store writes that failed.",
		},
		[]string{"kind"},
	)

	// sessionStates counts session state entries by target state.
	sessionStates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_session_state_transitions_total",
			Help: "Scrape session state changes by target state.",
		},
		[]string{"to"},
	)

	// runs counts finished runs by terminal status.
	runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_runs_total",
			Help: "Finished acquisition runs by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(scrapeJobs, scrapeJobDuration, scrapeFailures, scrapeBatches,
		browserSessions, persistErrors, sessionStates, runs)
}

// ObserveJob records one settled job. stage is ignored for successes.
func ObserveJob(ok bool, d time.Duration, stage string) {
	result := "success"
	if !ok {
		result = "failure"
		if stage == "" {
			stage = "unknown"
		}
		scrapeFailures.WithLabelValues(stage).Inc()
	}
	scrapeJobs.WithLabelValues(result).Inc()
	scrapeJobDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveBatch records one settled batch.
func ObserveBatch() { scrapeBatches.Inc() }

// SessionsOpened adjusts the open-session gauge; pass a negative n on close.
func SessionsOpened(n int) { browserSessions.Add(float64(n)) }

// ObservePersistError records a failed result write.
func ObservePersistError(kind string) { persistErrors.WithLabelValues(kind).Inc() }

// ObserveRun records a finished run.
func ObserveRun(status string) { runs.WithLabelValues(status).Inc() }

// ObserveTransition records a session entering state to.
func ObserveTransition(to string) { sessionStates.WithLabelValues(to).Inc() }
