// Package match ranks type-ahead suggestions against a searched title.
//
// The ratings site returns several suggestions per query (base game, DLC,
// remasters, bundles). By default the scraper clicks the first one; with the
// "best" strategy it clicks the suggestion that scores highest here.
//
// Scoring blends token-set Jaccard similarity with Jaro-Winkler similarity of
// the lowercased strings:
//
//	score = 0.7 * |Q ∩ S| / |Q ∪ S| + 0.3 * JaroWinkler(q, s)
//
// Ranking is deterministic: ties keep the site's DOM order.
package match

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Strategy selects which suggestion a session clicks.
type Strategy string

const (
	// First clicks the first suggestion, trusting the site's ranking.
	First Strategy = "first"
	// Best clicks the highest scoring suggestion.
	Best Strategy = "best"
)

// ErrUnknownStrategy is returned by ParseStrategy.
var ErrUnknownStrategy = errors.New("unknown select strategy")

// ParseStrategy parses a strategy name; empty means First.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", First:
		return First, nil
	case Best:
		return Best, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

const (
	jaccardWeight = 0.7
	jaroWeight    = 0.3
)

// Result is one ranked suggestion.
type Result struct {
	Index int // position in the original candidate list
	Text  string
	Score float64
}

// Rank scores every candidate against query, best first.
func Rank(query string, candidates []string) []Result {
	q := strings.ToLower(strings.TrimSpace(query))
	qTokens := tokenize(q)

	out := make([]Result, 0, len(candidates))
	for i, c := range candidates {
		s := strings.ToLower(strings.TrimSpace(c))
		score := jaccardWeight * jaccard(qTokens, tokenize(s))
		if q != "" && s != "" {
			score += jaroWeight * matchr.JaroWinkler(q, s, false)
		}
		out = append(out, Result{Index: i, Text: c, Score: score})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// Pick returns the index of the suggestion to click under strategy, or -1
// when there are no candidates.
func Pick(strategy Strategy, query string, candidates []string) int {
	if len(candidates) == 0 {
		return -1
	}
	if strategy != Best {
		return 0
	}
	return Rank(query, candidates)[0].Index
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(s string) map[string]struct{} {
	words := wordRE.FindAllString(s, -1)
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	over := 0
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	for k := range small {
		if _, ok := large[k]; ok {
			over++
		}
	}
	return float64(over) / float64(len(a)+len(b)-over)
}
