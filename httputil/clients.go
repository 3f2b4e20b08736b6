package httputil

import (
	"net/http"
	"time"

	"housescout/config"
)

// Clients bundles the HTTP clients used across the pipeline. Search and HEAD
// traffic gets short timeouts; content GETs are allowed longer.
type Clients struct {
	Search *http.Client // search engine APIs
	Head   *http.Client // existence checks, no redirects
	Get    *http.Client // full page fetches
}

func NewClients(cfg *config.ValidateConfig) *Clients {
	head := &http.Client{
		Timeout: cfg.HeadTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Clients{
		Search: &http.Client{Timeout: 10 * time.Second},
		Head:   head,
		Get:    &http.Client{Timeout: cfg.GetTimeout},
	}
}

// BrowserHeaders sets realistic browser headers on an outbound request so
// portals treat it like ordinary traffic.
func BrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-SG,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Cache-Control", "max-age=0")
}
