package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"housescout/models"
	"housescout/scrape"
	"housescout/storage"
)

// EnrichmentWorker walks archived listings that passed validation but have
// never been detail-scraped, fetches each page and folds the extracted
// description, amenities, floor and area into the listing's metadata.
type EnrichmentWorker struct {
	archive   *storage.PostgresStore
	scraper   *scrape.Scraper
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewEnrichmentWorker(archive *storage.PostgresStore, scraper *scrape.Scraper) *EnrichmentWorker {
	return &EnrichmentWorker{
		archive:   archive,
		scraper:   scraper,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *EnrichmentWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run a batch immediately.
func (w *EnrichmentWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *EnrichmentWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Enrichment worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.triggerCh:
			log.Println("Enrichment worker triggered manually")
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *EnrichmentWorker) processBatch(ctx context.Context, batchSize int) {
	listings, err := w.archive.GetUnenrichedListings(ctx, batchSize)
	if err != nil {
		w.logFunc(models.LogLevelError, fmt.Sprintf("enrichment: fetch batch: %v", err))
		return
	}
	if len(listings) == 0 {
		return
	}

	enriched, failed := 0, 0
	for _, archived := range listings {
		if ctx.Err() != nil {
			return
		}

		details, err := w.scraper.Details(ctx, archived.Listing.URL)
		if err != nil {
			failed++
			// Stamp the row anyway so a permanently broken page does not
			// hold its slot in every batch.
			if recErr := w.archive.RecordEnrichment(ctx, archived.ID, nil); recErr != nil {
				w.logFunc(models.LogLevelError, fmt.Sprintf("enrichment: record %s: %v", archived.Listing.URL, recErr))
			}
			continue
		}

		if err := w.archive.RecordEnrichment(ctx, archived.ID, details); err != nil {
			w.logFunc(models.LogLevelError, fmt.Sprintf("enrichment: record %s: %v", archived.Listing.URL, err))
			continue
		}
		enriched++
	}

	w.logFunc(models.LogLevelInfo, fmt.Sprintf("enrichment: batch done, %d enriched, %d failed of %d", enriched, failed, len(listings)))
}
