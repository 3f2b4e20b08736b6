package models

// SourceEngine identifies which search backend produced a hit.
type SourceEngine string

const (
	SourcePrimary  SourceEngine = "google_cse"
	SourceFallback SourceEngine = "duckduckgo"
)

// SearchHit is a raw result from a search engine, before normalization.
type SearchHit struct {
	Title   string       `json:"title"`
	URL     string       `json:"url"`
	Snippet string       `json:"snippet"`
	Domain  string       `json:"domain"`
	Source  SourceEngine `json:"source"`
}

// Blocked reasons recorded on a Listing when URL validation fails.
// HEAD_STATUS_<code>, GET_FAILED_<code> and EXCEPTION:<msg> are built with
// the helpers below.
const (
	BlockedNoURL          = "NO_URL"
	BlockedRobotsDisallow = "ROBOTS_DISALLOW"
)

// Listing is a normalized property record derived from one or more search
// hits. URL is the identity: two listings with the same URL are the same
// listing. Price and Rooms use 0 for "unknown"; Location falls back to the
// LocationUnknown sentinel.
type Listing struct {
	Name     string       `json:"name" db:"name"`
	Snippet  string       `json:"snippet" db:"snippet"`
	URL      string       `json:"url" db:"url"`
	Domain   string       `json:"domain" db:"domain"`
	Price    int          `json:"price" db:"price"`
	Rooms    int          `json:"rooms" db:"rooms"`
	Location string       `json:"location" db:"location"`
	Source   SourceEngine `json:"source" db:"source"`

	URLValidated  bool           `json:"url_validated" db:"url_validated"`
	BlockedReason string         `json:"blocked_reason,omitempty" db:"blocked_reason"`
	DataQuality   int            `json:"data_quality" db:"data_quality"`
	Metadata      map[string]any `json:"metadata,omitempty" db:"metadata"`
}

// LocationUnknown is the sentinel used when no known neighbourhood matched.
const LocationUnknown = "Singapore"

// HasPrice reports whether a sane price was extracted for the listing.
func (l *Listing) HasPrice() bool {
	return l.Price > 0
}

// Clone returns a deep copy of the listing. Metadata is copied recursively:
// JSON-LD payloads nest maps and arrays, and a shared inner map would let
// one caller mutate another's copy.
func (l Listing) Clone() Listing {
	if l.Metadata != nil {
		l.Metadata = deepCopyMap(l.Metadata)
	}
	return l
}

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

// Criteria are the optional user constraints applied by filter-and-rank.
// Zero values mean "no constraint". Owned by the caller, read-only here.
type Criteria struct {
	Location string `json:"location,omitempty"`
	MaxPrice int    `json:"max_price,omitempty"`
	FlatType string `json:"flat_type,omitempty"`
}
