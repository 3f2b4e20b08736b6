package models

import (
	"strings"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SearchRun records one pass of the search pipeline in the operational store.
type SearchRun struct {
	ID             int64      `json:"id" db:"id"`
	Query          string     `json:"query" db:"query"`
	Sites          string     `json:"sites" db:"sites"` // comma-joined site set
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at" db:"finished_at"`
	Status         RunStatus  `json:"status" db:"status"`
	ResultsFound   int        `json:"results_found" db:"results_found"`
	ResultsRanked  int        `json:"results_ranked" db:"results_ranked"`
	URLsValidated  int        `json:"urls_validated" db:"urls_validated"`
	CacheHit       bool       `json:"cache_hit" db:"cache_hit"`
	PrimaryEngine  bool       `json:"primary_engine" db:"primary_engine"`
	FallbackEngine bool       `json:"fallback_engine" db:"fallback_engine"`
	ErrorsCount    int        `json:"errors_count" db:"errors_count"`
}

// SavedSearch is a recurring query run by the daemon scheduler.
type SavedSearch struct {
	ID         int64     `json:"id" db:"id"`
	Query      string    `json:"query" db:"query"`
	Sites      string    `json:"sites" db:"sites"`
	MaxResults int       `json:"max_results" db:"max_results"`
	Location   string    `json:"location" db:"location"`
	MaxPrice   int       `json:"max_price" db:"max_price"`
	FlatType   string    `json:"flat_type" db:"flat_type"`
	TopK       int       `json:"top_k" db:"top_k"`
	Enabled    bool      `json:"enabled" db:"enabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Criteria builds the filter criteria carried by a saved search.
func (s *SavedSearch) Criteria() Criteria {
	return Criteria{
		Location: s.Location,
		MaxPrice: s.MaxPrice,
		FlatType: s.FlatType,
	}
}

// SiteList splits the comma-joined site set, dropping empties.
func (s *SavedSearch) SiteList() []string {
	var out []string
	for _, site := range strings.Split(s.Sites, ",") {
		if site = strings.TrimSpace(site); site != "" {
			out = append(out, site)
		}
	}
	return out
}
