package search

import (
	"context"
	"log"
	"net/url"
	"sort"
	"strings"

	"housescout/cache"
	"housescout/config"
	"housescout/extract"
	"housescout/models"
)

// PortalSearcher runs portal queries through the primary engine, tops up
// from the fallback, normalizes hits into listings and caches the result.
// Engine failures are absorbed: total failure yields an empty slice, never
// an error, since absence of results is a valid outcome.
type PortalSearcher struct {
	primary  Engine // nil when unconfigured
	fallback Engine
	store    cache.Store
	portals  map[string]*config.PortalConfig
}

func NewPortalSearcher(primary, fallback Engine, store cache.Store, portals map[string]*config.PortalConfig) *PortalSearcher {
	return &PortalSearcher{
		primary:  primary,
		fallback: fallback,
		store:    store,
		portals:  portals,
	}
}

// Capabilities reports which engines are live.
func (s *PortalSearcher) Capabilities() Capabilities {
	return Capabilities{
		Primary:  s.primary != nil,
		Fallback: s.fallback != nil,
	}
}

// SupportedPortals lists the configured portal domains, sorted for stable
// output.
func (s *PortalSearcher) SupportedPortals() []string {
	domains := make([]string, 0, len(s.portals))
	for _, p := range s.portals {
		domains = append(domains, p.Domain)
	}
	sort.Strings(domains)
	return domains
}

// BuildQuery combines the user query with an OR-group of site: filters.
func BuildQuery(query string, sites []string) string {
	if len(sites) == 0 {
		return query
	}
	filters := make([]string, len(sites))
	for i, site := range sites {
		filters[i] = "site:" + site
	}
	return query + " (" + strings.Join(filters, " OR ") + ")"
}

// Search runs the portal search pipeline for one query. sites defaults to
// the configured portal set; maxResults defaults to 8.
func (s *PortalSearcher) Search(ctx context.Context, query string, sites []string, maxResults int) []models.Listing {
	if maxResults <= 0 {
		maxResults = 8
	}
	if len(sites) == 0 {
		sites = s.SupportedPortals()
	}

	key := cache.Key(query, sites, maxResults)
	if cached, ok := s.store.Get(key); ok {
		log.Printf("Search: cache hit for %q", query)
		return truncate(cached, maxResults)
	}

	fullQuery := BuildQuery(query, sites)

	var hits []models.SearchHit
	engineErrors := 0

	if s.primary != nil {
		primaryHits, err := s.primary.Search(ctx, fullQuery, maxResults)
		if err != nil {
			log.Printf("Search: %s failed: %v", s.primary.Name(), err)
			engineErrors++
		} else {
			hits = append(hits, primaryHits...)
			log.Printf("Search: %s returned %d results for %q", s.primary.Name(), len(primaryHits), query)
		}
	}

	if len(hits) < maxResults && s.fallback != nil {
		remaining := maxResults - len(hits)
		fallbackHits, err := s.fallback.Search(ctx, fullQuery, remaining)
		if err != nil {
			log.Printf("Search: %s failed: %v", s.fallback.Name(), err)
			engineErrors++
		} else if len(fallbackHits) > 0 {
			hits = append(hits, fallbackHits...)
			log.Printf("Search: %s provided %d additional results", s.fallback.Name(), len(fallbackHits))
		}
	}

	listings := s.normalize(hits)
	listings = Dedupe(listings)
	sortByPrice(listings)

	// A run where every engine errored must not pin an empty entry in the
	// cache; an engine that genuinely returned zero matches may.
	if len(listings) > 0 || engineErrors == 0 {
		s.store.Set(key, listings)
	}

	return truncate(listings, maxResults)
}

// normalize converts raw hits into listings, discarding hits without a
// well-formed absolute URL and extracting price, rooms and location.
func (s *PortalSearcher) normalize(hits []models.SearchHit) []models.Listing {
	listings := make([]models.Listing, 0, len(hits))
	for _, hit := range hits {
		if !validURL(hit.URL) {
			continue
		}

		text := hit.Title + " " + hit.Snippet
		price, _ := extract.Price(text)

		listings = append(listings, models.Listing{
			Name:     strings.TrimSpace(hit.Title),
			Snippet:  strings.TrimSpace(hit.Snippet),
			URL:      hit.URL,
			Domain:   hit.Domain,
			Price:    price,
			Rooms:    extract.Rooms(hit.Title),
			Location: extract.Location(hit.Title),
			Source:   hit.Source,
		})
	}
	return listings
}

// Dedupe removes listings sharing a URL; the first occurrence wins and
// relative order is preserved.
func Dedupe(listings []models.Listing) []models.Listing {
	seen := make(map[string]struct{}, len(listings))
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if _, dup := seen[l.URL]; dup {
			continue
		}
		seen[l.URL] = struct{}{}
		out = append(out, l)
	}
	return out
}

// sortByPrice is a presentation ordering: priced listings first, ascending;
// unpriced after, in original order. Ranking proper happens in the rank
// package.
func sortByPrice(listings []models.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		if a.HasPrice() != b.HasPrice() {
			return a.HasPrice()
		}
		if a.HasPrice() {
			return a.Price < b.Price
		}
		return false
	})
}

func truncate(listings []models.Listing, n int) []models.Listing {
	if len(listings) > n {
		return listings[:n]
	}
	return listings
}

func validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}
