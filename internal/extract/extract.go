package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrExtractionFailed indicates the detail page loaded but did not expose the
// expected score elements.
var ErrExtractionFailed = errors.New("extraction failed")

// DefaultWait bounds how long Extract waits for the score orbs.
const DefaultWait = 10 * time.Second

// Rating is the data read from one detail page. Nil pointers mean the site
// showed no value.
type Rating struct {
	TopCriticAverage *int
	CriticsRecommend *int
	PlayerRating     *string
	Tier             *string
	URL              string
}

// Page is the subset of a browser tab the extractor needs.
type Page interface {
	WaitVisible(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
}

// Extractor reads a Rating from a page using one Layout.
type Extractor struct {
	Layout Layout
	// Wait bounds the wait for score orbs; <= 0 uses DefaultWait.
	Wait time.Duration
}

// Extract waits for the score orbs, snapshots the rendered DOM and parses it.
// The caller's context still applies; Wait only tightens it.
func (e Extractor) Extract(ctx context.Context, page Page) (Rating, error) {
	wait := e.Wait
	if wait <= 0 {
		wait = DefaultWait
	}
	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := page.WaitVisible(wctx, e.Layout.ScoreOrb); err != nil {
		return Rating{}, fmt.Errorf("%w: waiting for %s: %w", ErrExtractionFailed, e.Layout.ScoreOrb, err)
	}
	html, err := page.HTML(wctx)
	if err != nil {
		return Rating{}, fmt.Errorf("%w: read page: %w", ErrExtractionFailed, err)
	}
	url, err := page.Location(wctx)
	if err != nil {
		return Rating{}, fmt.Errorf("%w: read location: %w", ErrExtractionFailed, err)
	}
	return Parse(e.Layout, html, url)
}

// Parse extracts a Rating from rendered HTML.
//
// The first three score orbs are, in order, the top critic average, the
// critics-recommend percentage and the player rating. The first two are
// integers; anything non-numeric is treated as absent. A page without any
// orb is not a detail page and yields ErrExtractionFailed.
func Parse(layout Layout, html, url string) (Rating, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Rating{}, fmt.Errorf("%w: parse html: %w", ErrExtractionFailed, err)
	}

	var scores []string
	doc.Find(layout.ScoreOrb).EachWithBreak(func(i int, s *goquery.Selection) bool {
		scores = append(scores, strings.TrimSpace(s.Text()))
		return len(scores) < 3
	})
	if len(scores) == 0 {
		return Rating{}, fmt.Errorf("%w: no %s elements", ErrExtractionFailed, layout.ScoreOrb)
	}
	for len(scores) < 3 {
		scores = append(scores, "")
	}

	return Rating{
		TopCriticAverage: parseScore(scores[0]),
		CriticsRecommend: parseScore(scores[1]),
		PlayerRating:     nonEmpty(scores[2]),
		Tier:             tier(doc, layout),
		URL:              url,
	}, nil
}

// parseScore reads a leading integer such as "87" or "92%".
func parseScore(s string) *int {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func tier(doc *goquery.Document, layout Layout) *string {
	alt, ok := doc.Find(layout.TierImage).First().Attr("alt")
	if !ok {
		return nil
	}
	return nonEmpty(alt)
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
