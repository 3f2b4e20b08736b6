package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"housescout/models"
)

const ddgEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo is the credential-less fallback engine. It scrapes the HTML
// endpoint, so it always issues one combined query rather than one per site;
// the combined OR site: group keeps results deterministic.
type DuckDuckGo struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

func NewDuckDuckGo(client *http.Client, userAgent string) *DuckDuckGo {
	return &DuckDuckGo{
		client:    client,
		endpoint:  ddgEndpoint,
		userAgent: userAgent,
	}
}

func (d *DuckDuckGo) Name() string { return string(models.SourceFallback) }

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]models.SearchHit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "sg-en")

	req, err := http.NewRequestWithContext(ctx, "GET", d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo parse: %w", err)
	}

	var hits []models.SearchHit
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, _ := link.Attr("href")
		href = resolveDDGRedirect(href)
		if href == "" {
			return true
		}

		hits = append(hits, models.SearchHit{
			Title:   strings.TrimSpace(link.Text()),
			URL:     href,
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").Text()),
			Domain:  domainOf(href),
			Source:  models.SourceFallback,
		})
		return len(hits) < maxResults
	})

	return hits, nil
}

// resolveDDGRedirect unwraps DuckDuckGo's /l/?uddg=<target> redirect links
// to the real listing URL. Plain absolute URLs pass through unchanged.
func resolveDDGRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if strings.Contains(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}

	if !u.IsAbs() {
		return ""
	}
	return href
}
