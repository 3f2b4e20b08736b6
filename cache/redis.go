package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"housescout/models"
)

// Redis is a Store backed by a shared Redis instance, useful when several
// daemon replicas should share one result cache. Entries expire via Redis
// TTL; eviction is left to the server's maxmemory policy.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis parses redisURL and verifies connectivity.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl, prefix: "housescout:search:"}, nil
}

func (r *Redis) Get(key string) ([]models.Listing, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Cache: redis get error: %v", err)
		}
		return nil, false
	}

	var listings []models.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		log.Printf("Cache: corrupt redis entry for %q: %v", key, err)
		return nil, false
	}
	return listings, true
}

func (r *Redis) Set(key string, listings []models.Listing) {
	data, err := json.Marshal(listings)
	if err != nil {
		log.Printf("Cache: marshal error: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		log.Printf("Cache: redis set error: %v", err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
