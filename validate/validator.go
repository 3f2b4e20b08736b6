// Package validate confirms listing URLs are reachable and enriches
// listings with structured metadata and a data-quality score. Failures are
// recorded on the listing, never raised: a dead portal page is data, not an
// error.
package validate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"housescout/config"
	"housescout/httputil"
	"housescout/models"
)

// maxBodyBytes caps how much of a listing page is read before parsing.
const maxBodyBytes = 512 * 1024

// Validator checks listings concurrently with a bounded worker pool while a
// shared per-domain rate limiter keeps request pacing polite. Aggressive
// rates get us blockedpages that would be misread as "listing gone", so the
// pacing is part of correctness here.
type Validator struct {
	clients   *httputil.Clients
	limiter   *httputil.RateLimiter
	retry     httputil.RetryConfig
	robots    *robotsCache
	userAgent string
	workers   int
	portals   map[string]*config.PortalConfig
}

func New(clients *httputil.Clients, limiter *httputil.RateLimiter, userAgent string, workers int, portals map[string]*config.PortalConfig) *Validator {
	if workers <= 0 {
		workers = 4
	}
	return &Validator{
		clients:   clients,
		limiter:   limiter,
		retry:     httputil.RetryConfig{MaxAttempts: 3, BaseDelay: time.Second},
		robots:    newRobotsCache(clients.Search, userAgent),
		userAgent: userAgent,
		workers:   workers,
		portals:   portals,
	}
}

// Validate returns a slice of the same length and order with every listing
// enriched in place: URLValidated, BlockedReason, merged metadata and the
// data-quality score. A cancelled context degrades remaining listings to
// unvalidated rather than failing the batch.
func (v *Validator) Validate(ctx context.Context, listings []models.Listing) []models.Listing {
	out := make([]models.Listing, len(listings))
	sem := make(chan struct{}, v.workers)
	var wg sync.WaitGroup

	for i := range listings {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			out[idx] = v.checkOne(ctx, listings[idx])
		}(i)
	}

	wg.Wait()
	return out
}

// ValidateOne checks a single listing; used by the revalidation worker.
func (v *Validator) ValidateOne(ctx context.Context, listing models.Listing) models.Listing {
	return v.checkOne(ctx, listing)
}

func (v *Validator) checkOne(ctx context.Context, listing models.Listing) models.Listing {
	if listing.URL == "" {
		listing.URLValidated = false
		listing.BlockedReason = models.BlockedNoURL
		listing.DataQuality = v.qualityScore(&listing)
		return listing
	}

	parsed, err := url.Parse(listing.URL)
	if err != nil || !parsed.IsAbs() {
		listing.URLValidated = false
		listing.BlockedReason = models.BlockedNoURL
		listing.DataQuality = v.qualityScore(&listing)
		return listing
	}
	domain := parsed.Hostname()

	if err := ctx.Err(); err != nil {
		listing.URLValidated = false
		listing.BlockedReason = exceptionReason(err)
		listing.DataQuality = v.qualityScore(&listing)
		return listing
	}

	// robots.txt: unreachable or unparsable robots means allow, not block.
	if !v.robots.Allowed(ctx, parsed) {
		listing.URLValidated = false
		listing.BlockedReason = models.BlockedRobotsDisallow
		listing.DataQuality = v.qualityScore(&listing)
		return listing
	}

	if status, err := v.headCheck(ctx, domain, listing.URL); err != nil {
		listing.URLValidated = false
		listing.BlockedReason = exceptionReason(err)
		listing.DataQuality = v.qualityScore(&listing)
		return listing
	} else if status != http.StatusOK {
		listing.URLValidated = false
		listing.BlockedReason = fmt.Sprintf("HEAD_STATUS_%d", status)
		listing.DataQuality = v.qualityScore(&listing)
		return listing
	}

	body, status, err := v.getPage(ctx, domain, listing.URL)
	switch {
	case err != nil:
		listing.URLValidated = false
		listing.BlockedReason = exceptionReason(err)
	case status != http.StatusOK:
		listing.URLValidated = false
		listing.BlockedReason = fmt.Sprintf("GET_FAILED_%d", status)
	default:
		listing.URLValidated = true
		listing.BlockedReason = ""
		if meta := ParseJSONLD(body); meta != nil {
			mergeMetadata(&listing, meta)
		}
	}

	listing.DataQuality = v.qualityScore(&listing)
	return listing
}

func (v *Validator) headCheck(ctx context.Context, domain, listingURL string) (int, error) {
	if err := v.limiter.Wait(ctx, domain); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, "HEAD", listingURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.clients.Head.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// getPage fetches the listing body with retry on transient statuses
// (429/5xx) and a bounded read.
func (v *Validator) getPage(ctx context.Context, domain, listingURL string) (string, int, error) {
	var body string
	var status int

	err := v.retry.Do(ctx, "GET "+domain, func() error {
		status = 0
		if err := v.limiter.Wait(ctx, domain); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, "GET", listingURL, nil)
		if err != nil {
			return err
		}
		httputil.BrowserHeaders(req, v.userAgent)

		resp, err := v.clients.Get.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		if retryableStatus(status) {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return httputil.Retryable{Err: fmt.Errorf("status %d", status)}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}
		body = string(data)
		return nil
	})
	if err != nil {
		// The retry loop exhausted on a transient status: report it as a
		// failed GET rather than an exception.
		if status != 0 && retryableStatus(status) {
			return "", status, nil
		}
		return "", 0, err
	}

	return body, status, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func exceptionReason(err error) string {
	msg := err.Error()
	if len(msg) > 120 {
		msg = msg[:120]
	}
	return "EXCEPTION:" + msg
}

var genericListingPath = regexp.MustCompile(`(listing|property|unit|sale|rent|hdb|/\d{5,})`)

// qualityScore is the completeness heuristic: +3 known price, +2 known
// rooms, +2 non-sentinel location, +3 URL path that looks like a concrete
// listing page rather than a category or search page.
func (v *Validator) qualityScore(l *models.Listing) int {
	score := 0
	if l.HasPrice() {
		score += 3
	}
	if l.Rooms > 0 {
		score += 2
	}
	if l.Location != "" && l.Location != models.LocationUnknown {
		score += 2
	}
	if v.isListingPath(l.URL) {
		score += 3
	}
	return score
}

func (v *Validator) isListingPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)

	for _, p := range v.portals {
		if !strings.HasSuffix(u.Hostname(), p.Domain) {
			continue
		}
		for _, hint := range p.ListingHint {
			if strings.Contains(path, hint) {
				return true
			}
		}
	}
	return genericListingPath.MatchString(path)
}

// mergeMetadata attaches JSON-LD fields to the listing. An already-extracted
// price wins over page metadata; an absent one may be filled in if the page
// value is in the sane range.
func mergeMetadata(l *models.Listing, meta map[string]any) {
	l.Metadata = meta

	if l.HasPrice() {
		return
	}
	if price, ok := metadataPrice(meta); ok {
		l.Price = price
	}
}
