// Package rank filters search results against user criteria and orders the
// survivors by a relevance score. Ranking only ever reorders: a reachable
// listing outranks a blocked one, but blocked listings are still shown so a
// temporarily unreachable portal does not hide inventory.
package rank

import (
	"sort"
	"strconv"
	"strings"

	"housescout/config"
	"housescout/models"
)

// DefaultTopK is how many listings a search returns when the caller does not
// ask for a specific count.
const DefaultTopK = 3

type Ranker struct {
	official map[string]bool // portal domains that count as official sources
}

func New(portals map[string]*config.PortalConfig) *Ranker {
	official := make(map[string]bool)
	for _, p := range portals {
		if p.Official {
			official[p.Domain] = true
		}
	}
	return &Ranker{official: official}
}

// FilterAndRank drops listings that contradict the criteria, scores the rest
// and returns the top k in descending score order. Unknown values never
// disqualify a listing; only a known value that conflicts does.
func (r *Ranker) FilterAndRank(listings []models.Listing, criteria models.Criteria, k int) []models.Listing {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(listings) == 0 {
		return []models.Listing{}
	}

	var kept []models.Listing
	for _, l := range listings {
		if matchesCriteria(l, criteria) {
			kept = append(kept, l)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return r.Score(kept[i]) > r.Score(kept[j])
	})

	if len(kept) > k {
		kept = kept[:k]
	}
	if kept == nil {
		kept = []models.Listing{}
	}
	return kept
}

func matchesCriteria(l models.Listing, c models.Criteria) bool {
	if c.Location != "" && !mentionsLocation(l, c.Location) {
		return false
	}
	// Unknown price passes: the user can rule it out, the filter cannot.
	if c.MaxPrice > 0 && l.HasPrice() && l.Price > c.MaxPrice {
		return false
	}
	if c.FlatType != "" && !matchesFlatType(l, c.FlatType) {
		return false
	}
	return true
}

func mentionsLocation(l models.Listing, location string) bool {
	loc := strings.ToLower(location)
	if strings.Contains(strings.ToLower(l.Location), loc) {
		return true
	}
	if strings.Contains(strings.ToLower(l.Name), loc) {
		return true
	}
	return strings.Contains(strings.ToLower(l.Snippet), loc)
}

func matchesFlatType(l models.Listing, flatType string) bool {
	ft := strings.ToLower(flatType)
	text := strings.ToLower(l.Name + " " + l.Snippet)
	if strings.Contains(text, ft) {
		return true
	}
	// "4-room" style criteria also match on the extracted room count.
	if l.Rooms > 0 && strings.Contains(ft, strconv.Itoa(l.Rooms)+"-room") {
		return true
	}
	return false
}

// Score is the relevance heuristic. Validated beats blocked, official portal
// beats aggregator, known price beats unknown, and the primary engine's
// results carry slightly more weight than the fallback's.
func (r *Ranker) Score(l models.Listing) int {
	score := 0
	if l.URLValidated {
		score += 3
	}
	if r.official[baseDomain(l.Domain)] {
		score += 2
	}
	if l.HasPrice() {
		score += 2
	}
	if l.Rooms > 0 && l.Location != "" && l.Location != models.LocationUnknown {
		score += 1
	}
	if l.Snippet != "" {
		score += 1
	}
	switch l.Source {
	case models.SourcePrimary:
		score += 2
	case models.SourceFallback:
		score += 1
	}
	return score
}

// baseDomain strips a leading www so configured portal domains match the
// hostnames search engines return.
func baseDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(domain), "www.")
}
