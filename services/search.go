package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"housescout/models"
	"housescout/rank"
	"housescout/search"
	"housescout/storage"
	"housescout/validate"
)

// SearchService runs the full pipeline: portal search, URL validation and
// filter-and-rank. The operational store and listing archive are optional;
// absent stores just mean no history.
type SearchService struct {
	searcher  *search.PortalSearcher
	validator *validate.Validator
	ranker    *rank.Ranker

	ops     *storage.SQLiteStore
	archive *storage.PostgresStore

	pipelineTimeout time.Duration
}

func NewSearchService(searcher *search.PortalSearcher, validator *validate.Validator,
	ranker *rank.Ranker, pipelineTimeout time.Duration) *SearchService {
	return &SearchService{
		searcher:        searcher,
		validator:       validator,
		ranker:          ranker,
		pipelineTimeout: pipelineTimeout,
	}
}

func (s *SearchService) SetOpsStore(ops *storage.SQLiteStore)      { s.ops = ops }
func (s *SearchService) SetArchive(archive *storage.PostgresStore) { s.archive = archive }

// SearchRequest bundles one pipeline invocation.
type SearchRequest struct {
	Query      string
	Sites      []string
	MaxResults int
	Criteria   models.Criteria
	TopK       int
}

// SearchStats summarises what a pipeline run did.
type SearchStats struct {
	ResultsFound  int
	URLsValidated int
	ResultsRanked int
	Errors        int
	Duration      time.Duration
}

// Run executes the pipeline and returns the ranked listings. The whole run
// is bounded by the configured pipeline timeout; validation that does not
// finish in time degrades to unvalidated results rather than failing.
func (s *SearchService) Run(ctx context.Context, req SearchRequest) ([]models.Listing, *SearchStats, error) {
	if req.Query == "" {
		return nil, nil, fmt.Errorf("empty query")
	}

	if s.pipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pipelineTimeout)
		defer cancel()
	}

	started := time.Now()
	stats := &SearchStats{}
	runID := s.startRun(req)

	listings := s.searcher.Search(ctx, req.Query, req.Sites, req.MaxResults)
	if err := ctx.Err(); err != nil {
		stats.Errors++
		s.logRun(runID, models.LogLevelError, fmt.Sprintf("search aborted: %v", err))
		s.finishRun(runID, models.RunStatusFailed, stats, started)
		return nil, stats, err
	}
	stats.ResultsFound = len(listings)
	s.logRun(runID, models.LogLevelInfo, fmt.Sprintf("search %q found %d listings", req.Query, len(listings)))

	listings = s.validator.Validate(ctx, listings)
	for i := range listings {
		if listings[i].URLValidated {
			stats.URLsValidated++
		}
	}

	s.archiveListings(ctx, listings)

	ranked := s.ranker.FilterAndRank(listings, req.Criteria, req.TopK)
	stats.ResultsRanked = len(ranked)
	stats.Duration = time.Since(started)

	s.logRun(runID, models.LogLevelInfo, fmt.Sprintf("ranked %d of %d listings (%d validated) in %v",
		len(ranked), len(listings), stats.URLsValidated, stats.Duration.Round(time.Millisecond)))
	s.finishRun(runID, models.RunStatusCompleted, stats, started)

	return ranked, stats, nil
}

// RunSaved executes a saved search by its stored query and criteria.
func (s *SearchService) RunSaved(ctx context.Context, saved *models.SavedSearch) ([]models.Listing, *SearchStats, error) {
	return s.Run(ctx, SearchRequest{
		Query:      saved.Query,
		Sites:      saved.SiteList(),
		MaxResults: saved.MaxResults,
		Criteria:   saved.Criteria(),
		TopK:       saved.TopK,
	})
}

func (s *SearchService) archiveListings(ctx context.Context, listings []models.Listing) {
	if s.archive == nil {
		return
	}
	for i := range listings {
		if listings[i].URL == "" {
			continue
		}
		if _, err := s.archive.UpsertListing(ctx, &listings[i]); err != nil {
			log.Printf("[search] archive upsert failed for %s: %v", listings[i].URL, err)
		}
	}
}

func (s *SearchService) startRun(req SearchRequest) *int64 {
	if s.ops == nil {
		return nil
	}

	caps := s.searcher.Capabilities()
	run := &models.SearchRun{
		Query:          req.Query,
		Sites:          joinSites(req.Sites),
		StartedAt:      time.Now(),
		Status:         models.RunStatusRunning,
		PrimaryEngine:  caps.Primary,
		FallbackEngine: caps.Fallback,
	}
	id, err := s.ops.CreateRun(run)
	if err != nil {
		log.Printf("[search] create run record: %v", err)
		return nil
	}
	return &id
}

func (s *SearchService) finishRun(runID *int64, status models.RunStatus, stats *SearchStats, started time.Time) {
	if s.ops == nil || runID == nil {
		return
	}

	now := time.Now()
	run := &models.SearchRun{
		ID:            *runID,
		FinishedAt:    &now,
		Status:        status,
		ResultsFound:  stats.ResultsFound,
		ResultsRanked: stats.ResultsRanked,
		URLsValidated: stats.URLsValidated,
		ErrorsCount:   stats.Errors,
	}
	if err := s.ops.UpdateRun(run); err != nil {
		log.Printf("[search] update run record: %v", err)
	}
}

func (s *SearchService) logRun(runID *int64, level models.LogLevel, message string) {
	log.Printf("[search] %s", message)
	if s.ops == nil {
		return
	}
	if err := s.ops.Log(runID, level, message); err != nil {
		log.Printf("[search] op log write: %v", err)
	}
}

func joinSites(sites []string) string {
	return strings.Join(sites, ",")
}
