// Package scrape pulls supplementary detail off an individual listing page:
// description, nearby amenities, floor level and unit size. It works on best
// effort; portals differ wildly and a field that cannot be found is simply
// left zero.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"housescout/httputil"
)

const maxBodyBytes = 512 * 1024
const maxDescriptionLen = 500
const minDescriptionLen = 50

// amenityKeywords are the facility names worth surfacing for a Singapore
// flat hunt.
var amenityKeywords = []string{"mrt", "bus", "school", "mall", "park", "clinic", "market", "gym"}

var (
	floorPattern = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)?\s*floor`)
	areaPattern  = regexp.MustCompile(`(\d+(?:,\d{3})*)\s*(sqft|sq ft|sqm|sq m)`)
)

type PropertyDetails struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities"`
	FloorLevel  int      `json:"floor_level,omitempty"`
	AreaSize    int      `json:"area_size,omitempty"`
	AreaUnit    string   `json:"area_unit,omitempty"`
}

type Scraper struct {
	client    *http.Client
	limiter   *httputil.RateLimiter
	userAgent string
}

func New(client *http.Client, limiter *httputil.RateLimiter, userAgent string) *Scraper {
	return &Scraper{client: client, limiter: limiter, userAgent: userAgent}
}

// Details fetches and parses one listing page.
func (s *Scraper) Details(ctx context.Context, listingURL string) (*PropertyDetails, error) {
	if err := s.limiter.Wait(ctx, domainOf(listingURL)); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", listingURL, nil)
	if err != nil {
		return nil, err
	}
	httputil.BrowserHeaders(req, s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch property page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch property page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse property page: %w", err)
	}

	return Parse(doc, listingURL), nil
}

// Parse extracts details from an already-fetched document.
func Parse(doc *goquery.Document, listingURL string) *PropertyDetails {
	details := &PropertyDetails{
		URL:         listingURL,
		Title:       strings.TrimSpace(doc.Find("h1").First().Text()),
		Description: description(doc),
		Amenities:   amenities(doc),
	}

	text := strings.ToLower(doc.Text())
	if m := floorPattern.FindStringSubmatch(text); m != nil {
		details.FloorLevel, _ = strconv.Atoi(m[1])
	}
	if m := areaPattern.FindStringSubmatch(text); m != nil {
		details.AreaSize, _ = strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		details.AreaUnit = m[2]
	}

	return details
}

// description tries the portals' usual description containers before falling
// back to any paragraph long enough to be meaningful.
func description(doc *goquery.Document) string {
	selectors := []string{".description", ".property-description", ".listing-description", "p"}

	for _, selector := range selectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if len(text) > minDescriptionLen {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			if len(found) > maxDescriptionLen {
				found = found[:maxDescriptionLen]
			}
			return found
		}
	}
	return ""
}

func amenities(doc *goquery.Document) []string {
	text := strings.ToLower(doc.Text())

	var found []string
	for _, keyword := range amenityKeywords {
		if strings.Contains(text, keyword) {
			found = append(found, strings.ToUpper(keyword))
		}
	}
	return found
}

func domainOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		host := rawURL[i+3:]
		if j := strings.IndexAny(host, "/?#"); j >= 0 {
			host = host[:j]
		}
		return host
	}
	return rawURL
}
