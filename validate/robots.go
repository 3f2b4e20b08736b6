package validate

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsCache fetches and keeps one robots.txt ruleset per host. The policy
// is fail-open: a host whose robots.txt cannot be fetched or parsed allows
// everything, because "robots unknown" must never look like "listing gone".
type robotsCache struct {
	mu        sync.Mutex
	client    *http.Client
	userAgent string
	byHost    map[string]*robotstxt.RobotsData
}

func newRobotsCache(client *http.Client, userAgent string) *robotsCache {
	return &robotsCache{
		client:    client,
		userAgent: userAgent,
		byHost:    map[string]*robotstxt.RobotsData{},
	}
}

func (c *robotsCache) Allowed(ctx context.Context, u *url.URL) bool {
	data := c.forHost(ctx, u)
	if data == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, c.userAgent)
}

func (c *robotsCache) forHost(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	host := u.Host

	c.mu.Lock()
	if data, ok := c.byHost[host]; ok {
		c.mu.Unlock()
		return data
	}
	c.mu.Unlock()

	data := c.fetch(ctx, u.Scheme+"://"+host+"/robots.txt")

	c.mu.Lock()
	c.byHost[host] = data
	c.mu.Unlock()
	return data
}

func (c *robotsCache) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, "GET", robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return data
}
