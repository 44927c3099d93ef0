package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveJob_CountsByResultAndStage(t *testing.T) {
	baseOK := testutil.ToFloat64(scrapeJobs.WithLabelValues("success"))
	baseFail := testutil.ToFloat64(scrapeJobs.WithLabelValues("failure"))
	baseStage := testutil.ToFloat64(scrapeFailures.WithLabelValues("extracting"))
	baseUnknown := testutil.ToFloat64(scrapeFailures.WithLabelValues("unknown"))

	ObserveJob(true, time.Second, "ignored")
	ObserveJob(false, 2*time.Second, "extracting")
	ObserveJob(false, time.Second, "")

	if got := testutil.ToFloat64(scrapeJobs.WithLabelValues("success")); got != baseOK+1 {
		t.Fatalf("success = %v, want %v", got, baseOK+1)
	}
	if got := testutil.ToFloat64(scrapeJobs.WithLabelValues("failure")); got != baseFail+2 {
		t.Fatalf("failure = %v, want %v", got, baseFail+2)
	}
	if got := testutil.ToFloat64(scrapeFailures.WithLabelValues("extracting")); got != baseStage+1 {
		t.Fatalf("extracting = %v", got)
	}
	if got := testutil.ToFloat64(scrapeFailures.WithLabelValues("unknown")); got != baseUnknown+1 {
		t.Fatalf("unknown = %v", got)
	}
}

func TestSessionsGaugeAndCounters(t *testing.T) {
	base := testutil.ToFloat64(browserSessions)
	SessionsOpened(3)
	SessionsOpened(-2)
	if got := testutil.ToFloat64(browserSessions); got != base+1 {
		t.Fatalf("sessions = %v, want %v", got, base+1)
	}
	SessionsOpened(-1)

	baseBatches := testutil.ToFloat64(scrapeBatches)
	ObserveBatch()
	if got := testutil.ToFloat64(scrapeBatches); got != baseBatches+1 {
		t.Fatalf("batches = %v", got)
	}

	basePersist := testutil.ToFloat64(persistErrors.WithLabelValues("rating"))
	ObservePersistError("rating")
	if got := testutil.ToFloat64(persistErrors.WithLabelValues("rating")); got != basePersist+1 {
		t.Fatalf("persist errors = %v", got)
	}

	baseRuns := testutil.ToFloat64(runs.WithLabelValues("completed"))
	ObserveRun("completed")
	if got := testutil.ToFloat64(runs.WithLabelValues("completed")); got != baseRuns+1 {
		t.Fatalf("runs = %v", got)
	}
}

func TestObserveTransition(t *testing.T) {
	base := testutil.ToFloat64(sessionStates.WithLabelValues("recovering"))
	ObserveTransition("recovering")
	ObserveTransition("recovering")
	if got := testutil.ToFloat64(sessionStates.WithLabelValues("recovering")); got != base+2 {
		t.Fatalf("transitions = %v, want %v", got, base+2)
	}
}
