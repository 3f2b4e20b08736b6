package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"housescout/models"
)

// PostgresStore is the long-lived listing archive. It is optional: the
// pipeline runs fine without it, the archive just adds history and feeds the
// revalidation worker.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS archived_listings (
		id UUID PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		name TEXT,
		snippet TEXT,
		domain TEXT,
		price INTEGER DEFAULT 0,
		rooms INTEGER DEFAULT 0,
		location TEXT,
		source TEXT,
		url_validated BOOLEAN DEFAULT FALSE,
		blocked_reason TEXT,
		data_quality INTEGER DEFAULT 0,
		metadata JSONB,
		available BOOLEAN DEFAULT TRUE,
		first_seen_at TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL,
		checked_at TIMESTAMPTZ NOT NULL,
		enriched_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_archived_domain ON archived_listings(domain);
	CREATE INDEX IF NOT EXISTS idx_archived_stale ON archived_listings(checked_at) WHERE available = TRUE;
	CREATE INDEX IF NOT EXISTS idx_archived_unenriched ON archived_listings(last_seen_at) WHERE available = TRUE AND enriched_at IS NULL;
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// UpsertListing archives a listing keyed by URL. Known values are kept when
// a later search turns up less detail than an earlier one.
func (s *PostgresStore) UpsertListing(ctx context.Context, l *models.Listing) (uuid.UUID, error) {
	metadata, err := json.Marshal(l.Metadata)
	if err != nil {
		return uuid.Nil, err
	}

	query := `
		INSERT INTO archived_listings (
			id, url, name, snippet, domain, price, rooms, location, source,
			url_validated, blocked_reason, data_quality, metadata, available,
			first_seen_at, last_seen_at, checked_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE, NOW(), NOW(), NOW()
		)
		ON CONFLICT (url) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), archived_listings.name),
			snippet = COALESCE(NULLIF(EXCLUDED.snippet, ''), archived_listings.snippet),
			price = COALESCE(NULLIF(EXCLUDED.price, 0), archived_listings.price),
			rooms = COALESCE(NULLIF(EXCLUDED.rooms, 0), archived_listings.rooms),
			location = COALESCE(NULLIF(EXCLUDED.location, ''), archived_listings.location),
			source = EXCLUDED.source,
			url_validated = EXCLUDED.url_validated,
			blocked_reason = EXCLUDED.blocked_reason,
			data_quality = EXCLUDED.data_quality,
			metadata = COALESCE(EXCLUDED.metadata, archived_listings.metadata),
			available = TRUE,
			last_seen_at = NOW(),
			checked_at = NOW()
		RETURNING id`

	var id uuid.UUID
	err = s.pool.QueryRow(ctx, query,
		uuid.New(), l.URL, l.Name, l.Snippet, l.Domain, l.Price, l.Rooms, l.Location,
		l.Source, l.URLValidated, l.BlockedReason, l.DataQuality, metadata,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetStaleListings returns available archived listings not checked for at
// least staleDuration, oldest first. Feedstock for the revalidation worker.
func (s *PostgresStore) GetStaleListings(ctx context.Context, staleDuration time.Duration, limit int) ([]models.ArchivedListing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, url, name, snippet, domain, price, rooms, location, source,
			url_validated, blocked_reason, data_quality, metadata, available,
			first_seen_at, last_seen_at, checked_at
		FROM archived_listings
		WHERE available = TRUE AND checked_at < $1
		ORDER BY checked_at
		LIMIT $2`, time.Now().Add(-staleDuration), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.ArchivedListing
	for rows.Next() {
		archived, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *archived)
	}
	return listings, rows.Err()
}

// RecordCheck stores the outcome of a revalidation pass on one archived row.
func (s *PostgresStore) RecordCheck(ctx context.Context, id uuid.UUID, validated bool, blockedReason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE archived_listings
		SET url_validated = $2, blocked_reason = $3, checked_at = NOW()
		WHERE id = $1`, id, validated, blockedReason)
	return err
}

// MarkUnavailable retires a listing whose URL no longer resolves to a live
// page.
func (s *PostgresStore) MarkUnavailable(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE archived_listings
		SET available = FALSE, url_validated = FALSE, checked_at = NOW()
		WHERE id = $1`, id)
	return err
}

// GetUnenrichedListings returns validated listings that have not yet been
// through detail scraping, most recently seen first.
func (s *PostgresStore) GetUnenrichedListings(ctx context.Context, limit int) ([]models.ArchivedListing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, url, name, snippet, domain, price, rooms, location, source,
			url_validated, blocked_reason, data_quality, metadata, available,
			first_seen_at, last_seen_at, checked_at
		FROM archived_listings
		WHERE available = TRUE AND url_validated = TRUE AND enriched_at IS NULL
		ORDER BY last_seen_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.ArchivedListing
	for rows.Next() {
		archived, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *archived)
	}
	return listings, rows.Err()
}

// RecordEnrichment merges scraped details into the listing's metadata and
// stamps the row enriched. A nil details still stamps the row so failed URLs
// are not retried every batch.
func (s *PostgresStore) RecordEnrichment(ctx context.Context, id uuid.UUID, details any) error {
	if details == nil {
		_, err := s.pool.Exec(ctx, `
			UPDATE archived_listings SET enriched_at = NOW() WHERE id = $1`, id)
		return err
	}

	payload, err := json.Marshal(map[string]any{"details": details})
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE archived_listings
		SET metadata = COALESCE(metadata, '{}'::jsonb) || $2::jsonb, enriched_at = NOW()
		WHERE id = $1`, id, payload)
	return err
}

func (s *PostgresStore) CountAvailable(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM archived_listings WHERE available = TRUE`).Scan(&count)
	return count, err
}

// ListAvailable returns available archived listings for snapshot export.
func (s *PostgresStore) ListAvailable(ctx context.Context, limit int) ([]models.ArchivedListing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, url, name, snippet, domain, price, rooms, location, source,
			url_validated, blocked_reason, data_quality, metadata, available,
			first_seen_at, last_seen_at, checked_at
		FROM archived_listings
		WHERE available = TRUE
		ORDER BY last_seen_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.ArchivedListing
	for rows.Next() {
		archived, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *archived)
	}
	return listings, rows.Err()
}

func scanArchived(row pgx.Row) (*models.ArchivedListing, error) {
	var a models.ArchivedListing
	var metadata []byte
	err := row.Scan(
		&a.ID, &a.Listing.URL, &a.Listing.Name, &a.Listing.Snippet, &a.Listing.Domain,
		&a.Listing.Price, &a.Listing.Rooms, &a.Listing.Location, &a.Listing.Source,
		&a.Listing.URLValidated, &a.Listing.BlockedReason, &a.Listing.DataQuality,
		&metadata, &a.Available, &a.FirstSeenAt, &a.LastSeenAt, &a.CheckedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &a.Listing.Metadata)
	}
	return &a, nil
}
