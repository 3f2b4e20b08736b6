package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"housescout/cache"
	"housescout/config"
	"housescout/httputil"
	"housescout/models"
	"housescout/rank"
	"housescout/search"
	"housescout/validate"
)

type stubEngine struct {
	name string
	hits []models.SearchHit
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Search(ctx context.Context, query string, maxResults int) ([]models.SearchHit, error) {
	if len(e.hits) > maxResults {
		return e.hits[:maxResults], nil
	}
	return e.hits, nil
}

// testService composes the real pipeline stages around an httptest portal
// server: a fallback-only searcher, a validator pointed at the server and
// the default ranker.
func testService(srv *httptest.Server, hits []models.SearchHit, timeout time.Duration) *SearchService {
	portals := config.PortalMap(config.DefaultPortals())
	clients := &httputil.Clients{
		Search: srv.Client(),
		Head:   srv.Client(),
		Get:    srv.Client(),
	}
	searcher := search.NewPortalSearcher(
		nil, // primary unconfigured
		&stubEngine{name: "fallback", hits: hits},
		cache.NewMemory(time.Minute, 10),
		portals,
	)
	validator := validate.New(clients, httputil.NewRateLimiter(0), "housescout-test/1.0", 2, portals)
	return NewSearchService(searcher, validator, rank.New(portals), timeout)
}

func fallbackHit(title, url string) models.SearchHit {
	return models.SearchHit{
		Title:   title,
		URL:     url,
		Snippet: "snippet for " + title,
		Domain:  "99.co",
		Source:  models.SourceFallback,
	}
}

func TestRunFallbackValidateRank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/gone") {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Write([]byte("<html><body>resale flat</body></html>"))
	}))
	defer srv.Close()

	hits := []models.SearchHit{
		fallbackHit("Tampines 4-room flat $520,000", srv.URL+"/listing/11111"),
		fallbackHit("Bedok 3-room flat", srv.URL+"/listing/22222"),
		fallbackHit("Delisted unit", srv.URL+"/gone/33333"),
	}
	svc := testService(srv, hits, 0)

	listings, stats, err := svc.Run(context.Background(), SearchRequest{
		Query: "hdb resale flat",
		Sites: []string{"99.co"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.ResultsFound != 3 {
		t.Fatalf("ResultsFound = %d, want 3", stats.ResultsFound)
	}
	if stats.URLsValidated != 2 {
		t.Fatalf("URLsValidated = %d, want 2", stats.URLsValidated)
	}
	if stats.ResultsRanked != 3 || len(listings) != 3 {
		t.Fatalf("ranked %d listings, want 3", len(listings))
	}

	// Validated listings outrank the blocked one; the priced listing leads.
	if !listings[0].URLValidated || !listings[1].URLValidated {
		t.Fatalf("expected the two reachable listings first, got %+v", listings)
	}
	if !listings[0].HasPrice() || listings[0].Price != 520000 {
		t.Fatalf("expected the priced listing first, got price %d", listings[0].Price)
	}
	if listings[2].URLValidated {
		t.Fatal("the delisted listing must not validate")
	}
	if listings[2].BlockedReason != "HEAD_STATUS_410" {
		t.Fatalf("expected HEAD_STATUS_410, got %q", listings[2].BlockedReason)
	}
}

func TestRunTimeoutDegradesToUnvalidated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(400 * time.Millisecond)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	hits := []models.SearchHit{
		fallbackHit("Slow portal flat", srv.URL+"/listing/44444"),
	}
	svc := testService(srv, hits, 100*time.Millisecond)

	listings, stats, err := svc.Run(context.Background(), SearchRequest{
		Query: "hdb resale flat",
		Sites: []string{"99.co"},
	})
	if err != nil {
		t.Fatalf("a timed-out validation must degrade, not fail: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected the listing back unvalidated, got %d listings", len(listings))
	}
	if listings[0].URLValidated {
		t.Fatal("validation cannot have succeeded inside the timeout")
	}
	if !strings.HasPrefix(listings[0].BlockedReason, "EXCEPTION:") {
		t.Fatalf("expected an EXCEPTION reason, got %q", listings[0].BlockedReason)
	}
	if stats.URLsValidated != 0 {
		t.Fatalf("URLsValidated = %d, want 0", stats.URLsValidated)
	}
}

func TestRunEmptyQuery(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	svc := testService(srv, nil, 0)
	if _, _, err := svc.Run(context.Background(), SearchRequest{}); err == nil {
		t.Fatal("expected an error for an empty query")
	}
}
