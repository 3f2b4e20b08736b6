package models

import (
	"time"

	"github.com/google/uuid"
)

// ArchivedListing is a listing persisted in the Postgres archive, keyed by
// URL so repeat searches update the same row.
type ArchivedListing struct {
	ID          uuid.UUID `json:"id"`
	Listing     Listing   `json:"listing"`
	Available   bool      `json:"available"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	CheckedAt   time.Time `json:"checked_at"`
}
