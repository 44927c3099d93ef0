package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Summary aggregates the results of one run.
type Summary struct {
	Processed    int       `json:"processed"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	FailedTitles []string  `json:"failed_titles"`
	Batches      int       `json:"batches"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

func (s *Summary) add(r Result) {
	s.Processed++
	if r.OK() {
		s.Succeeded++
		return
	}
	s.Failed++
	s.FailedTitles = append(s.FailedTitles, r.Game.Name)
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Report renders the end-of-run report printed by the CLI.
func (s Summary) Report() string {
	var b strings.Builder
	b.WriteString("========== SUMMARY ==========\n")
	fmt.Fprintf(&b, "Total games: %d\n", s.Processed)
	fmt.Fprintf(&b, "Successfully scraped: %d\n", s.Succeeded)
	fmt.Fprintf(&b, "Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "Batches: %d\n", s.Batches)
	fmt.Fprintf(&b, "Duration: %s\n", s.Duration().Round(time.Millisecond))
	if len(s.FailedTitles) > 0 {
		b.WriteString("\n========== FAILED GAMES ==========\n")
		for _, t := range s.FailedTitles {
			fmt.Fprintf(&b, "  - %s\n", t)
		}
	}
	return b.String()
}

// logResult writes the per-job progress line.
func logResult(n, total int, r Result) {
	progress := fmt.Sprintf("[%d/%d]", n, total)
	if r.OK() {
		rt := r.Outcome.Rating
		ev := log.Info().Str("progress", progress).Str("title", r.Game.Name).Int("session", r.Session)
		if rt.Tier != nil {
			ev = ev.Str("tier", *rt.Tier)
		}
		if rt.TopCriticAverage != nil {
			ev = ev.Int("score", *rt.TopCriticAverage)
		}
		ev.Msgf("%s %s → %s %s", progress, r.Game.Name, deref(rt.Tier, "no tier"), scoreText(rt.TopCriticAverage))
		return
	}
	err := r.Outcome.Err
	if r.PersistErr != nil {
		err = r.PersistErr
	}
	log.Warn().Str("progress", progress).Str("title", r.Game.Name).Int("session", r.Session).Err(err).
		Msgf("%s %s failed", progress, r.Game.Name)
}

func deref(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func scoreText(n *int) string {
	if n == nil {
		return "-/100"
	}
	return fmt.Sprintf("%d/100", *n)
}
