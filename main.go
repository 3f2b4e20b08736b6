package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"housescout/cache"
	"housescout/config"
	"housescout/decision"
	"housescout/finance"
	"housescout/httputil"
	"housescout/logging"
	"housescout/models"
	"housescout/rank"
	"housescout/scheduler"
	"housescout/scrape"
	"housescout/search"
	"housescout/services"
	"housescout/storage"
	"housescout/validate"
	"housescout/workers"
)

var (
	searchQuery = flag.String("search", "", "Run one search and exit")
	sites       = flag.String("sites", "", "Comma-separated portal domains to search")
	topK        = flag.Int("k", 0, "Number of ranked listings to return")
	location    = flag.String("location", "", "Filter: preferred area")
	maxPrice    = flag.Int("maxprice", 0, "Filter: maximum price in SGD")
	flatType    = flag.String("flattype", "", "Filter: flat type, e.g. 4-room")
	optionsFile = flag.String("options", "", "Run decision analysis on a JSON file of property options and exit")
	profileFile = flag.String("profile", "", "User profile JSON for decision analysis")
	income      = flag.Float64("income", 0, "Run an affordability assessment for this monthly income and exit")
	debt        = flag.Float64("debt", 0, "Affordability: existing monthly debt obligations")
	deposit     = flag.Float64("deposit", 0, "Affordability: deposit saved")
	showRuns    = flag.Int("runs", 0, "Print the N most recent search runs and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("housescout.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting housescout...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d portal configs", len(cfg.Portals))
	for id, portal := range cfg.Portals {
		log.Printf("  - %s (%s)", portal.Name, id)
	}

	ctx := context.Background()

	// Decision analysis and affordability are offline, no pipeline needed.
	if *optionsFile != "" {
		if err := runDecision(*optionsFile, *profileFile); err != nil {
			log.Fatalf("Decision analysis failed: %v", err)
		}
		return
	}
	if *income > 0 {
		if err := runAffordability(*income, *debt, *deposit); err != nil {
			log.Fatalf("Affordability assessment failed: %v", err)
		}
		return
	}
	if *showRuns > 0 {
		if err := printRunHistory(cfg.DBPath, *showRuns); err != nil {
			log.Fatalf("Run history failed: %v", err)
		}
		return
	}

	svc, caps, cleanup := buildPipeline(ctx, cfg)
	defer cleanup()

	if *searchQuery != "" {
		runOnce(ctx, svc, caps)
		return
	}

	runDaemon(ctx, cfg, svc, caps)
}

// capabilities is what got probed and wired at startup. Optional backends
// that are absent degrade the daemon, never fail it.
type capabilities struct {
	engines   search.Capabilities
	archive   *storage.PostgresStore
	ops       *storage.SQLiteStore
	uploader  workers.Uploader
	validator *validate.Validator
	scraper   *scrape.Scraper
}

func buildPipeline(ctx context.Context, cfg *config.Config) (*services.SearchService, *capabilities, func()) {
	caps := &capabilities{}
	var closers []func()

	clients := httputil.NewClients(&cfg.Validate)
	limiter := httputil.NewRateLimiter(cfg.Validate.DomainDelay)

	var primary search.Engine
	if cfg.Google.Configured() {
		primary = search.NewGoogleCSE(cfg.Google.APIKey, cfg.Google.CX, clients.Search)
		log.Println("Primary engine: Google Custom Search")
	} else {
		log.Println("Google CSE not configured, fallback engine only")
	}
	fallback := search.NewDuckDuckGo(clients.Search, cfg.UserAgent)

	var store cache.Store
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.Cache.TTL)
		if err != nil {
			log.Printf("Redis unavailable (%v), using in-memory cache", err)
		} else {
			store = redisStore
			closers = append(closers, func() { redisStore.Close() })
			log.Println("Result cache: Redis")
		}
	}
	if store == nil {
		store = cache.NewMemory(cfg.Cache.TTL, cfg.Cache.MaxItems)
		log.Println("Result cache: in-memory")
	}

	searcher := search.NewPortalSearcher(primary, fallback, store, cfg.Portals)
	validator := validate.New(clients, limiter, cfg.UserAgent, cfg.Validate.Workers, cfg.Portals)
	ranker := rank.New(cfg.Portals)
	caps.engines = searcher.Capabilities()
	caps.validator = validator

	svc := services.NewSearchService(searcher, validator, ranker, cfg.Validate.PipelineTimeout)

	caps.scraper = scrape.New(clients.Get, limiter, cfg.UserAgent)

	ops, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Printf("SQLite unavailable (%v), running without run history", err)
	} else {
		svc.SetOpsStore(ops)
		caps.ops = ops
		closers = append(closers, func() { ops.Close() })
		log.Printf("Operational store: %s", cfg.DBPath)
	}

	if cfg.DatabaseURL != "" {
		archive, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Postgres unavailable (%v), running without listing archive", err)
		} else {
			svc.SetArchive(archive)
			caps.archive = archive
			closers = append(closers, archive.Close)
			log.Printf("Listing archive: %s", maskConnectionString(cfg.DatabaseURL))
		}
	}

	caps.uploader = workers.NoOpUploader{}
	if cfg.S3.Configured() {
		uploader, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			log.Printf("S3 unavailable (%v), snapshot export disabled", err)
		} else {
			caps.uploader = uploader
			log.Printf("Snapshot bucket: %s", cfg.S3.Bucket)
		}
	}

	cleanup := func() {
		for _, close := range closers {
			close()
		}
	}
	return svc, caps, cleanup
}

func runOnce(ctx context.Context, svc *services.SearchService, caps *capabilities) {
	req := services.SearchRequest{
		Query: *searchQuery,
		TopK:  *topK,
		Criteria: models.Criteria{
			Location: *location,
			MaxPrice: *maxPrice,
			FlatType: *flatType,
		},
	}
	if *sites != "" {
		req.Sites = strings.Split(*sites, ",")
	}

	listings, stats, err := svc.Run(ctx, req)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	log.Printf("Found %d, validated %d, ranked %d in %v",
		stats.ResultsFound, stats.URLsValidated, stats.ResultsRanked, stats.Duration.Round(time.Millisecond))

	if len(listings) == 0 {
		// An empty result means different things depending on whether any
		// engine could serve the query at all.
		if !caps.engines.Available() {
			fmt.Println("No search engines are configured; set GOOGLE_CSE_API_KEY/GOOGLE_CSE_ID or check connectivity.")
		} else {
			fmt.Println("No listings matched the query.")
		}
		return
	}

	out, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		log.Fatalf("Encode results: %v", err)
	}
	fmt.Println(string(out))
}

func printRunHistory(dbPath string, limit int) error {
	ops, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer ops.Close()

	runs, err := ops.GetRecentRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}
	out, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runDecision(optionsPath, profilePath string) error {
	optData, err := os.ReadFile(optionsPath)
	if err != nil {
		return fmt.Errorf("read options: %w", err)
	}
	var options []models.PropertyOption
	if err := json.Unmarshal(optData, &options); err != nil {
		return fmt.Errorf("parse options: %w", err)
	}

	var profile models.UserProfile
	if profilePath != "" {
		profData, err := os.ReadFile(profilePath)
		if err != nil {
			return fmt.Errorf("read profile: %w", err)
		}
		if err := json.Unmarshal(profData, &profile); err != nil {
			return fmt.Errorf("parse profile: %w", err)
		}
	}

	analysis, err := decision.AnalyzeOptions(options, profile)
	if err != nil {
		return err
	}

	fmt.Println(analysis.Summary)
	fmt.Printf("Risk: %s (ratio %.2f, emergency fund $%.0f)\n",
		analysis.Risk.Level, analysis.Risk.AffordabilityRatio, analysis.Risk.RecommendedEmergencyFund)
	for _, factor := range analysis.Risk.Factors {
		fmt.Printf("  - %s\n", factor)
	}
	fmt.Println("Next steps:")
	for _, step := range analysis.NextSteps {
		fmt.Printf("  - %s\n", step)
	}
	return nil
}

func runAffordability(income, debt, deposit float64) error {
	report, err := finance.Affordability(income, debt, deposit)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runDaemon(ctx context.Context, cfg *config.Config, svc *services.SearchService, caps *capabilities) {
	if caps.ops == nil {
		log.Fatal("Daemon mode requires the SQLite operational store")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg, svc, caps.ops)

	if caps.archive != nil {
		opsLog := func(level models.LogLevel, message string) {
			if err := caps.ops.Log(nil, level, message); err != nil {
				log.Printf("op log write: %v", err)
			}
		}

		revalidate := workers.NewRevalidateWorker(caps.archive, caps.validator)
		revalidate.SetLogger(opsLog)
		go revalidate.Run(ctx, 24*time.Hour, 20, 30*time.Minute)
		log.Println("Revalidate worker started")

		enrich := workers.NewEnrichmentWorker(caps.archive, caps.scraper)
		enrich.SetLogger(opsLog)
		go enrich.Run(ctx, 10, 5*time.Minute)
		log.Println("Enrichment worker started")

		export := workers.NewExportWorker(caps.archive, caps.uploader)
		export.SetLogger(opsLog)
		go export.Run(ctx, 6*time.Hour)
		log.Println("Export worker started")

		sched.SetWorkers(revalidate, enrich, export)
	} else {
		log.Println("No listing archive: background workers disabled")
	}

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// The interval ticker fires only after its first period; run enabled
	// saved searches once at boot so a restart does not miss a cycle.
	go sched.TriggerNow(ctx)

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks the password in a connection string for logging.
func maskConnectionString(connStr string) string {
	start := strings.Index(connStr, "://")
	if start < 0 {
		return connStr
	}
	rest := connStr[start+3:]
	at := strings.Index(rest, "@")
	colon := strings.Index(rest, ":")
	if colon < 0 || at < 0 || at < colon {
		return connStr
	}
	return connStr[:start+3] + rest[:colon+1] + "****" + rest[at:]
}
