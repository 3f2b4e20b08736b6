package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"housescout/models"
	"housescout/storage"
	"housescout/validate"
)

// RevalidateWorker re-checks archived listings whose last validation has
// gone stale and retires the ones whose pages are gone. Portal listings
// disappear silently; without this sweep the archive slowly fills with dead
// URLs.
type RevalidateWorker struct {
	archive   *storage.PostgresStore
	validator *validate.Validator
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewRevalidateWorker(archive *storage.PostgresStore, validator *validate.Validator) *RevalidateWorker {
	return &RevalidateWorker{
		archive:   archive,
		validator: validator,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *RevalidateWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run a batch immediately.
func (w *RevalidateWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *RevalidateWorker) Run(ctx context.Context, staleDuration time.Duration, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Revalidate worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, staleDuration, batchSize)
		case <-w.triggerCh:
			log.Println("Revalidate worker triggered manually")
			w.processBatch(ctx, staleDuration, batchSize)
		}
	}
}

func (w *RevalidateWorker) processBatch(ctx context.Context, staleDuration time.Duration, batchSize int) {
	stale, err := w.archive.GetStaleListings(ctx, staleDuration, batchSize)
	if err != nil {
		log.Printf("Revalidate: query error: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	log.Printf("Revalidate: checking %d stale listings", len(stale))

	var checked, retired int
	for _, archived := range stale {
		if ctx.Err() != nil {
			return
		}

		result := w.validator.ValidateOne(ctx, archived.Listing)
		checked++

		if listingGone(result.BlockedReason) {
			log.Printf("Revalidate: listing gone (%s): %s", result.BlockedReason, archived.Listing.URL)
			if err := w.archive.MarkUnavailable(ctx, archived.ID); err != nil {
				log.Printf("Revalidate: failed to mark unavailable: %v", err)
			} else {
				retired++
			}
			continue
		}

		if err := w.archive.RecordCheck(ctx, archived.ID, result.URLValidated, result.BlockedReason); err != nil {
			log.Printf("Revalidate: failed to record check: %v", err)
		}
	}

	msg := fmt.Sprintf("revalidated %d listings, retired %d", checked, retired)
	log.Printf("Revalidate: %s", msg)
	w.logFunc(models.LogLevelInfo, msg)
}

// listingGone reports whether a blocked reason means the page is permanently
// gone rather than temporarily unreachable. Transient failures (timeouts,
// 5xx, robots) keep the listing available for the next sweep.
func listingGone(blockedReason string) bool {
	switch blockedReason {
	case models.BlockedNoURL,
		"HEAD_STATUS_404", "HEAD_STATUS_410",
		"GET_FAILED_404", "GET_FAILED_410":
		return true
	}
	return false
}
