// Package cache provides the result cache in front of the search engines:
// a TTL + LRU in-memory store by default, or Redis when configured.
package cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"

	"housescout/models"
)

// Store is the contract the searcher depends on. Get must return a copy the
// caller can mutate freely.
type Store interface {
	Get(key string) ([]models.Listing, bool)
	Set(key string, listings []models.Listing)
}

// Key builds the cache key for a (query, site set, max results) triple.
func Key(query string, sites []string, maxResults int) string {
	return fmt.Sprintf("%s|%s|%d", query, strings.Join(sites, ","), maxResults)
}

type entry struct {
	key        string
	insertedAt time.Time
	listings   []models.Listing
}

// Memory is a mutex-guarded TTL + LRU cache. Expired entries are purged
// lazily on Get; capacity overflow evicts least-recently-used keys on Set.
type Memory struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxItems int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
	now      func() time.Time
}

const (
	DefaultTTL      = 60 * time.Second
	DefaultMaxItems = 200
)

func NewMemory(ttl time.Duration, maxItems int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	m := &Memory{
		ttl:      ttl,
		maxItems: maxItems,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
	return m
}

// Get returns a deep copy of the cached listings, refreshing the key's
// recency. Expired entries are removed and reported as absent.
func (m *Memory) Get(key string) ([]models.Listing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false
	}

	e := el.Value.(*entry)
	if m.now().Sub(e.insertedAt) > m.ttl {
		m.order.Remove(el)
		delete(m.items, key)
		return nil, false
	}

	m.order.MoveToFront(el)
	return cloneListings(e.listings), true
}

// Set stores a copy of listings under key, evicting LRU entries when over
// capacity.
func (m *Memory) Set(key string, listings []models.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneListings(listings)

	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry)
		e.insertedAt = m.now()
		e.listings = stored
		m.order.MoveToFront(el)
		return
	}

	el := m.order.PushFront(&entry{key: key, insertedAt: m.now(), listings: stored})
	m.items[key] = el

	for len(m.items) > m.maxItems {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*entry).key)
	}
}

// Len reports the number of live keys, counting entries not yet purged.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func cloneListings(in []models.Listing) []models.Listing {
	if in == nil {
		return nil
	}
	out := make([]models.Listing, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
