package validate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"housescout/config"
	"housescout/httputil"
	"housescout/models"
)

func testValidator(srv *httptest.Server) *Validator {
	clients := &httputil.Clients{
		Search: srv.Client(),
		Head:   srv.Client(),
		Get:    srv.Client(),
	}
	v := New(clients, httputil.NewRateLimiter(0), "housescout-test/1.0", 2, config.PortalMap(config.DefaultPortals()))
	v.retry = httputil.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}
	return v
}

func TestValidateNoURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	v := testValidator(srv)

	out := v.Validate(context.Background(), []models.Listing{{Name: "3-room flat"}})
	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}
	if out[0].URLValidated {
		t.Fatal("listing without URL must not validate")
	}
	if out[0].BlockedReason != models.BlockedNoURL {
		t.Fatalf("expected %q, got %q", models.BlockedNoURL, out[0].BlockedReason)
	}
}

func TestValidateRobotsDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /listing/\n"))
			return
		}
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()
	v := testValidator(srv)

	out := v.Validate(context.Background(), []models.Listing{{URL: srv.URL + "/listing/123"}})
	if out[0].URLValidated {
		t.Fatal("disallowed path must not validate")
	}
	if out[0].BlockedReason != models.BlockedRobotsDisallow {
		t.Fatalf("expected %q, got %q", models.BlockedRobotsDisallow, out[0].BlockedReason)
	}
}

func TestValidateMissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html><body>flat for sale</body></html>"))
	}))
	defer srv.Close()
	v := testValidator(srv)

	out := v.Validate(context.Background(), []models.Listing{{URL: srv.URL + "/listing/123"}})
	if !out[0].URLValidated {
		t.Fatalf("missing robots.txt must allow, got blocked: %q", out[0].BlockedReason)
	}
}

func TestValidateHeadStatusBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if r.Method == "HEAD" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()
	v := testValidator(srv)

	out := v.Validate(context.Background(), []models.Listing{{URL: srv.URL + "/listing/1"}})
	if out[0].URLValidated {
		t.Fatal("HEAD 410 must not validate")
	}
	if out[0].BlockedReason != "HEAD_STATUS_410" {
		t.Fatalf("expected HEAD_STATUS_410, got %q", out[0].BlockedReason)
	}
}

func TestValidateGetRetriesThenFails(t *testing.T) {
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if r.Method == "HEAD" {
			return
		}
		atomic.AddInt32(&gets, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	v := testValidator(srv)

	out := v.Validate(context.Background(), []models.Listing{{URL: srv.URL + "/listing/1"}})
	if out[0].URLValidated {
		t.Fatal("GET 503 must not validate")
	}
	if out[0].BlockedReason != "GET_FAILED_503" {
		t.Fatalf("expected GET_FAILED_503, got %q", out[0].BlockedReason)
	}
	if n := atomic.LoadInt32(&gets); n != 3 {
		t.Fatalf("expected 3 GET attempts, got %d", n)
	}
}

func TestValidateTransportErrorAfterRetryableStatus(t *testing.T) {
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if r.Method == "HEAD" {
			return
		}
		if atomic.AddInt32(&gets, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		// Drop the connection so the client sees a transport error.
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()
	v := testValidator(srv)

	out := v.Validate(context.Background(), []models.Listing{{URL: srv.URL + "/listing/1"}})
	if out[0].URLValidated {
		t.Fatal("dropped connection must not validate")
	}
	if !strings.HasPrefix(out[0].BlockedReason, "EXCEPTION:") {
		t.Fatalf("transport error after a 503 attempt must report EXCEPTION, got %q", out[0].BlockedReason)
	}
}

const jsonldPage = `<html><head>
<script type="application/ld+json">
{"@type":"RealEstateListing","name":"Tampines 4-room","offers":{"@type":"Offer","price":"520,000","priceCurrency":"SGD"}}
</script>
</head><body>4-room resale flat in Tampines</body></html>`

func TestValidateMergesJSONLDPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if r.Method == "HEAD" {
			return
		}
		w.Write([]byte(jsonldPage))
	}))
	defer srv.Close()
	v := testValidator(srv)

	out := v.Validate(context.Background(), []models.Listing{{URL: srv.URL + "/listing/1", Rooms: 4, Location: "Tampines"}})
	if !out[0].URLValidated {
		t.Fatalf("expected validated, got blocked: %q", out[0].BlockedReason)
	}
	if out[0].Price != 520000 {
		t.Fatalf("expected page price 520000, got %d", out[0].Price)
	}
	if out[0].Metadata == nil {
		t.Fatal("expected metadata attached")
	}
	// price(3) + rooms(2) + location(2) + listing path(3)
	if out[0].DataQuality != 10 {
		t.Fatalf("expected quality 10, got %d", out[0].DataQuality)
	}
}

func TestValidateKeepsExtractedPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if r.Method == "HEAD" {
			return
		}
		w.Write([]byte(jsonldPage))
	}))
	defer srv.Close()
	v := testValidator(srv)

	out := v.Validate(context.Background(), []models.Listing{{URL: srv.URL + "/listing/1", Price: 480000}})
	if out[0].Price != 480000 {
		t.Fatalf("extracted price must win over page metadata, got %d", out[0].Price)
	}
}

func TestValidatePreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if r.Method == "HEAD" {
			return
		}
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()
	v := testValidator(srv)

	in := []models.Listing{
		{Name: "a", URL: srv.URL + "/listing/a"},
		{Name: "b"},
		{Name: "c", URL: srv.URL + "/listing/c"},
	}
	out := v.Validate(context.Background(), in)
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	for i := range in {
		if out[i].Name != in[i].Name {
			t.Fatalf("order changed at %d: %q vs %q", i, out[i].Name, in[i].Name)
		}
	}
	if out[1].BlockedReason != models.BlockedNoURL {
		t.Fatalf("middle listing should be NO_URL, got %q", out[1].BlockedReason)
	}
}

func TestValidateCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	v := testValidator(srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := v.Validate(ctx, []models.Listing{{URL: srv.URL + "/listing/1"}})
	if out[0].URLValidated {
		t.Fatal("cancelled context must not validate")
	}
	if !strings.HasPrefix(out[0].BlockedReason, "EXCEPTION:") {
		t.Fatalf("expected EXCEPTION reason, got %q", out[0].BlockedReason)
	}
}

func TestQualityScore(t *testing.T) {
	v := New(nil, httputil.NewRateLimiter(0), "ua", 1, config.PortalMap(config.DefaultPortals()))

	tests := []struct {
		name    string
		listing models.Listing
		want    int
	}{
		{"empty", models.Listing{}, 0},
		{"price only", models.Listing{Price: 500000}, 3},
		{"sentinel location scores nothing", models.Listing{Location: models.LocationUnknown}, 0},
		{"real location", models.Listing{Location: "Bedok"}, 2},
		{"portal hint path", models.Listing{URL: "https://www.propertyguru.com.sg/listing/12345"}, 3},
		{"everything", models.Listing{
			Price: 500000, Rooms: 4, Location: "Bedok",
			URL: "https://www.99.co/singapore/sale/property/tampines-hdb",
		}, 10},
	}

	for _, tt := range tests {
		if got := v.qualityScore(&tt.listing); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestParseJSONLDGraph(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@graph":[{"@type":"WebPage"},{"@type":"Product","offers":{"price":650000}}]}
	</script></head></html>`

	meta := ParseJSONLD(page)
	if meta == nil {
		t.Fatal("expected metadata from @graph")
	}
	price, ok := metadataPrice(meta)
	if !ok || price != 650000 {
		t.Fatalf("expected price 650000, got %d (ok=%v)", price, ok)
	}
}

func TestMetadataPriceOutOfRange(t *testing.T) {
	if _, ok := metadataPrice(map[string]any{"price": float64(5000)}); ok {
		t.Fatal("rental-sized price must not pass the sane range")
	}
	if _, ok := metadataPrice(map[string]any{"price": "S$9,000,000"}); ok {
		t.Fatal("out-of-range price must be rejected")
	}
}
