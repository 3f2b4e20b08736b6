// Package extract holds the text heuristics that pull structured fields out
// of noisy search result titles and snippets. All functions are pure so the
// patterns can evolve without touching the pipeline.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Sane residential price range for Singapore; extracted values outside it
// are treated as absent rather than clamped.
const (
	MinPrice = 100_000
	MaxPrice = 5_000_000
)

var (
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)S\$\s*([\d,]+)`),
		regexp.MustCompile(`\$\s*([\d,]+)`),
		regexp.MustCompile(`(?i)SGD\s*([\d,]+)`),
		regexp.MustCompile(`(?i)([\d,]+)\s*SGD`),
		regexp.MustCompile(`(?i)([\d,]+)\s*k\b`),
	}
	roomsPattern = regexp.MustCompile(`(\d+)[-\s]?(room|bed)`)
)

// Price extracts a sale price from free text. The second return value is
// false when no in-range price was found. Supported shapes: $1,234 /
// S$1,234 / SGD 1234 / 123k (scaled by 1000).
func Price(text string) (int, bool) {
	for _, pattern := range pricePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		raw := strings.ReplaceAll(match[1], ",", "")
		value, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}

		if strings.Contains(strings.ToLower(match[0]), "k") {
			value *= 1000
		}

		if value >= MinPrice && value <= MaxPrice {
			return value, true
		}
	}
	return 0, false
}

// Rooms extracts a room or bedroom count ("3-room", "4 bed"). Zero means
// unknown.
func Rooms(text string) int {
	match := roomsPattern.FindStringSubmatch(strings.ToLower(text))
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}

// singaporeAreas is the neighbourhood gazetteer matched against titles.
// Multi-word areas come before their substrings would ever match.
var singaporeAreas = []string{
	"tampines", "jurong", "woodlands", "punggol", "sengkang", "bishan",
	"toa payoh", "bedok", "hougang", "ang mo kio", "clementi", "bukit batok",
	"yishun", "choa chu kang", "pasir ris", "sembawang", "kallang", "geylang",
	"bukit timah", "orchard", "marina bay", "sentosa",
}

// Location matches the text against the fixed gazetteer of known
// neighbourhoods. When nothing matches it returns the generic sentinel.
func Location(text string) string {
	lower := strings.ToLower(text)
	for _, area := range singaporeAreas {
		if strings.Contains(lower, area) {
			return title(area)
		}
	}
	return "Singapore"
}

// title capitalises each word; strings.Title is deprecated and the gazetteer
// is plain ASCII.
func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
