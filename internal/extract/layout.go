// Package extract pulls rating fields out of a rendered game detail page.
//
// The ratings site has shipped more than one markup over time, so every
// selector the scraper touches lives in a Layout. One Layout is chosen by
// configuration (SITE_LAYOUT) and threaded through both the scrape session
// (search box, type-ahead) and the extractor (score orbs, tier badge).
package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownLayout is returned by Lookup for unregistered layout names.
var ErrUnknownLayout = errors.New("unknown site layout")

// Layout is the selector set for one variant of the ratings site.
type Layout struct {
	// Name is the configuration key (e.g. "opencritic").
	Name string

	// SearchInput is the home-page search box.
	SearchInput string
	// Typeahead is the container rendered while suggestions are shown.
	Typeahead string
	// Suggestion matches each clickable suggestion, in DOM order.
	Suggestion string

	// ScoreOrb matches the score values on a detail page in fixed order:
	// top critic average, critics recommend, player rating.
	ScoreOrb string
	// TierImage is the tier badge; its alt attribute carries the tier label.
	TierImage string

	// DetailPath is a substring every game detail URL contains.
	DetailPath string
}

// OpenCritic is the current opencritic.com markup.
var OpenCritic = Layout{
	Name:        "opencritic",
	SearchInput: `input[placeholder="Search"]`,
	Typeahead:   `ngb-typeahead-window`,
	Suggestion:  `ngb-typeahead-window button`,
	ScoreOrb:    `app-score-orb .inner-orb`,
	TierImage:   `app-tier-display.mighty-score img`,
	DetailPath:  "/game/",
}

// OpenCriticLegacy is the pre-Angular-components markup, where the orbs and
// tier badge were plain classed elements.
var OpenCriticLegacy = Layout{
	Name:        "opencritic-legacy",
	SearchInput: `input[type="search"]`,
	Typeahead:   `.typeahead-results`,
	Suggestion:  `.typeahead-results a`,
	ScoreOrb:    `.score-orb .inner-orb`,
	TierImage:   `.tier-display img`,
	DetailPath:  "/game/",
}

var layouts = map[string]Layout{
	OpenCritic.Name:       OpenCritic,
	OpenCriticLegacy.Name: OpenCriticLegacy,
}

// Lookup returns the layout registered under name (case-insensitive).
func Lookup(name string) (Layout, error) {
	l, ok := layouts[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownLayout, name, strings.Join(Names(), ", "))
	}
	return l, nil
}

// Names lists registered layouts in sorted order.
func Names() []string {
	out := make([]string, 0, len(layouts))
	for n := range layouts {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
