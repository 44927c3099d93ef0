// Package normalize turns catalogue titles into search-friendly names.
//
// Store listings decorate titles with trademark glyphs, edition suffixes and
// platform qualifiers ("– Digital Deluxe Edition", "PS5 Version") that make a
// ratings-site type-ahead miss. Title strips that noise. It is pure and
// idempotent: Title(Title(x)) == Title(x).
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// sep matches the separators that introduce a suffix.
const sep = `\s*[-–:]\s*`

// editionKeywords are the words that may precede "Edition". Several can be
// stacked ("Digital Deluxe Edition").
var editionKeywords = []string{
	`Standard`,
	`Deluxe`,
	`Ultimate`,
	`Gold`,
	`Premium`,
	`Digital`,
	`Complete`,
	`Game\s+of\s+the\s+Year`,
	`GOTY`,
	`Remastered`,
	`Enhanced`,
	`Director['’]?s?\s*Cut`,
	`Launch`,
	`Limited`,
	`Collector['’]?s?`,
	`Special`,
}

var (
	glyphRE = regexp.MustCompile(`[™®©]`)

	editionRE = regexp.MustCompile(`(?i)` + sep +
		`(?:(?:` + strings.Join(editionKeywords, "|") + `)\s*)+Edition\s*$`)

	platformRE = regexp.MustCompile(`(?i)` + sep +
		`(?:PS4|PS5|PlayStation\s*[45])(?:\s*(?:Version|Edition))?\s*$`)

	fullGameRE = regexp.MustCompile(`(?i)` + sep + `Full\s*Game\s*$`)

	trailingSepRE = regexp.MustCompile(`\s*[-–:]+\s*$`)
)

// suffixRules run in order and are repeated until none of them changes the
// title, so "X – Deluxe Edition – PS5" and "X – PS5 – Deluxe Edition" both
// reduce to "X".
var suffixRules = []*regexp.Regexp{editionRE, platformRE, fullGameRE, trailingSepRE}

// Title returns the normalized search name for a catalogue title.
func Title(title string) string {
	s := glyphRE.ReplaceAllString(title, "")
	s = strings.TrimSpace(norm.NFC.String(s))

	for {
		prev := s
		for _, re := range suffixRules {
			s = re.ReplaceAllString(s, "")
		}
		s = strings.TrimSpace(s)
		if s == prev {
			return s
		}
	}
}
