package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"housescout/models"
)

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleCSE is the primary, structured search engine (Google Custom Search
// JSON API). It is only constructed when credentials are configured.
type GoogleCSE struct {
	apiKey   string
	cx       string
	client   *http.Client
	endpoint string
}

func NewGoogleCSE(apiKey, cx string, client *http.Client) *GoogleCSE {
	return &GoogleCSE{
		apiKey:   apiKey,
		cx:       cx,
		client:   client,
		endpoint: googleEndpoint,
	}
}

func (g *GoogleCSE) Name() string { return string(models.SourcePrimary) }

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (g *GoogleCSE) Search(ctx context.Context, query string, maxResults int) ([]models.SearchHit, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.cx)
	params.Set("q", query)
	if maxResults > 10 {
		maxResults = 10 // CSE hard limit per request
	}
	params.Set("num", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, "GET", g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google cse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google cse status %d: %s", resp.StatusCode, body)
	}

	var decoded googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("google cse decode: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		hits = append(hits, models.SearchHit{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
			Domain:  domainOf(item.Link),
			Source:  models.SourcePrimary,
		})
	}
	return hits, nil
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
