package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"housescout/models"
	"housescout/storage"
)

// Uploader is the snapshot destination. Satisfied by storage.S3Uploader;
// NoOpUploader stands in when no bucket is configured.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
	PublicURL(key string) string
}

// NoOpUploader discards snapshots.
type NoOpUploader struct{}

func (NoOpUploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	return nil
}

func (NoOpUploader) PublicURL(key string) string { return "" }

// snapshotLimit caps how many listings one export carries.
const snapshotLimit = 1000

// ExportWorker periodically serialises the available archive to a JSON
// snapshot and uploads it.
type ExportWorker struct {
	archive   *storage.PostgresStore
	uploader  Uploader
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewExportWorker(archive *storage.PostgresStore, uploader Uploader) *ExportWorker {
	if uploader == nil {
		uploader = NoOpUploader{}
	}
	return &ExportWorker{
		archive:   archive,
		uploader:  uploader,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *ExportWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes an immediate export.
func (w *ExportWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Export worker stopping")
			return
		case <-ticker.C:
			w.export(ctx)
		case <-w.triggerCh:
			log.Println("Export worker triggered manually")
			w.export(ctx)
		}
	}
}

type snapshot struct {
	GeneratedAt    time.Time                `json:"generated_at"`
	Count          int                      `json:"count"`
	TotalAvailable int                      `json:"total_available"`
	Listings       []models.ArchivedListing `json:"listings"`
}

func (w *ExportWorker) export(ctx context.Context) {
	listings, err := w.archive.ListAvailable(ctx, snapshotLimit)
	if err != nil {
		log.Printf("Export: query error: %v", err)
		return
	}
	if len(listings) == 0 {
		return
	}

	// The snapshot is capped; record how much of the archive it covers.
	total, err := w.archive.CountAvailable(ctx)
	if err != nil {
		log.Printf("Export: count error: %v", err)
		total = len(listings)
	}

	snap := snapshot{
		GeneratedAt:    time.Now().UTC(),
		Count:          len(listings),
		TotalAvailable: total,
		Listings:       listings,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("Export: marshal error: %v", err)
		return
	}

	key := storage.SnapshotKey(snap.GeneratedAt)
	if err := w.uploader.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		log.Printf("Export: upload error: %v", err)
		w.logFunc(models.LogLevelError, fmt.Sprintf("snapshot upload failed: %v", err))
		return
	}

	msg := fmt.Sprintf("exported %d of %d available listings to %s", len(listings), total, key)
	if url := w.uploader.PublicURL(key); url != "" {
		msg += " (" + url + ")"
	}
	log.Printf("Export: %s", msg)
	w.logFunc(models.LogLevelInfo, msg)
}
