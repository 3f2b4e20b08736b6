package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Google    GoogleConfig
	Cache     CacheConfig
	Validate  ValidateConfig
	Scheduler SchedulerConfig
	S3        S3Config

	RedisURL    string // optional: redis-backed result cache
	DatabaseURL string // optional: postgres listing archive
	DBPath      string // sqlite operational store
	UserAgent   string
	MaxResults  int
	LogLevel    string
	Portals     map[string]*PortalConfig
}

// GoogleConfig holds Custom Search credentials. Both fields must be set for
// the primary engine to be available; otherwise the searcher degrades to the
// fallback engine only.
type GoogleConfig struct {
	APIKey string
	CX     string
}

func (g GoogleConfig) Configured() bool {
	return g.APIKey != "" && g.CX != ""
}

type CacheConfig struct {
	TTL      time.Duration
	MaxItems int
}

type ValidateConfig struct {
	HeadTimeout     time.Duration
	GetTimeout      time.Duration
	DomainDelay     time.Duration
	Workers         int
	PipelineTimeout time.Duration
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func (s S3Config) Configured() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// PortalConfig describes one property portal: its domain, per-domain request
// pacing and the URL path fragments that mark a page as a concrete listing
// rather than a category or search page.
type PortalConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Domain      string   `yaml:"domain"`
	RateLimitMS int      `yaml:"rate_limit_ms"`
	ListingHint []string `yaml:"listing_path_hints"`
	Official    bool     `yaml:"official"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Google: GoogleConfig{
			APIKey: getEnvAny("GOOGLE_CSE_API_KEY", "GOOGLE_API_KEY"),
			CX:     getEnvAny("GOOGLE_CSE_ID", "GOOGLE_CX"),
		},
		Cache: CacheConfig{
			TTL:      time.Duration(getEnvInt("SEARCH_CACHE_TTL", 60)) * time.Second,
			MaxItems: getEnvInt("SEARCH_CACHE_MAX", 200),
		},
		Validate: ValidateConfig{
			HeadTimeout:     time.Duration(getEnvInt("VALIDATE_HEAD_TIMEOUT_S", 6)) * time.Second,
			GetTimeout:      time.Duration(getEnvInt("VALIDATE_GET_TIMEOUT_S", 15)) * time.Second,
			DomainDelay:     time.Duration(getEnvInt("VALIDATE_DOMAIN_DELAY_MS", 1500)) * time.Millisecond,
			Workers:         getEnvInt("VALIDATE_WORKERS", 4),
			PipelineTimeout: time.Duration(getEnvInt("PIPELINE_TIMEOUT_S", 25)) * time.Second,
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SEARCH_CRON"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "ap-southeast-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		RedisURL:    os.Getenv("REDIS_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "housescout.db"),
		UserAgent:   getEnv("HTTP_USER_AGENT", defaultUserAgent),
		MaxResults:  getEnvInt("SEARCH_MAX_RESULTS", 8),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Portals:     make(map[string]*PortalConfig),
	}

	if interval := os.Getenv("SEARCH_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadPortalConfigs(); err != nil {
		return nil, err
	}
	if len(cfg.Portals) == 0 {
		for _, p := range DefaultPortals() {
			cfg.Portals[p.ID] = p
		}
	}

	return cfg, nil
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultPortals is the built-in Singapore portal set, used when no yaml
// configs are present.
func DefaultPortals() []*PortalConfig {
	return []*PortalConfig{
		{ID: "propertyguru", Name: "PropertyGuru", Domain: "propertyguru.com.sg", RateLimitMS: 2000, ListingHint: []string{"listing", "property"}, Official: true},
		{ID: "99co", Name: "99.co", Domain: "99.co", RateLimitMS: 1500, ListingHint: []string{"property", "sale", "rent"}, Official: true},
		{ID: "hdb", Name: "HDB", Domain: "hdb.gov.sg", RateLimitMS: 1000, ListingHint: []string{"hdb", "flat"}, Official: true},
		{ID: "edgeprop", Name: "EdgeProp", Domain: "edgeprop.sg", RateLimitMS: 1500, ListingHint: []string{"listing", "property"}},
	}
}

// PortalMap indexes a portal list by ID.
func PortalMap(portals []*PortalConfig) map[string]*PortalConfig {
	m := make(map[string]*PortalConfig, len(portals))
	for _, p := range portals {
		m[p.ID] = p
	}
	return m
}

// PortalDomains returns the domains of all configured portals, the default
// site set for searches.
func (c *Config) PortalDomains() []string {
	var domains []string
	for _, p := range c.Portals {
		domains = append(domains, p.Domain)
	}
	return domains
}

func (c *Config) loadPortalConfigs() error {
	configDir := "config/portals"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var portal PortalConfig
		if err := yaml.Unmarshal(data, &portal); err != nil {
			return err
		}

		c.Portals[portal.ID] = &portal
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAny(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
