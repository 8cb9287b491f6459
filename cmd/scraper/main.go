package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/trackline/jobsonar/internal/companies"
	"github.com/trackline/jobsonar/internal/config"
	"github.com/trackline/jobsonar/internal/index"
	"github.com/trackline/jobsonar/internal/orchestrator"
	"github.com/trackline/jobsonar/internal/queue"
	"github.com/trackline/jobsonar/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var (
		companyName = flag.String("company", "", "scrape a single company by name")
		runAll      = flag.Bool("all", false, "scrape every enabled company once")
	)
	flag.Parse()

	cfg := config.Load()

	file, err := companies.Load(cfg.Scraper.CompaniesFile)
	if err != nil {
		log.Fatalf("Load companies file: %v", err)
	}
	log.Printf("Loaded %d companies from %s", len(file.Companies), cfg.Scraper.CompaniesFile)

	st, err := store.NewPostgres(cfg.Postgres.ConnectionString)
	if err != nil {
		log.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer st.Close()
	log.Println("PostgreSQL connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher orchestrator.BatchPublisher
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		log.Println("Redis connected")
		publisher = queue.NewPublisher(rdb, cfg.Redis.JobQueue)
	}

	orch, err := orchestrator.New(st, file, cfg.Scraper, publisher)
	if err != nil {
		log.Fatalf("Build orchestrator: %v", err)
	}

	if len(cfg.Elasticsearch.Addresses) > 0 {
		jobIndex, err := index.NewJobIndex(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index)
		if err != nil {
			log.Fatalf("Elasticsearch connection failed: %v", err)
		}
		log.Printf("Elasticsearch connected, index: %s", cfg.Elasticsearch.Index)
		if err := jobIndex.EnsureIndex(ctx); err != nil {
			log.Printf("Warning: ensure index failed: %v", err)
		}
		orch.SetIndexer(jobIndex)
	}

	switch {
	case *companyName != "":
		if _, err := orch.ScrapeCompany(ctx, *companyName); err != nil {
			log.Fatalf("Scrape %s: %v", *companyName, err)
		}
	case *runAll || cfg.Scraper.CronSpec == "":
		if err := orch.ScrapeAll(ctx); err != nil {
			log.Fatalf("Scrape all: %v", err)
		}
	default:
		runScheduled(ctx, cancel, orch, cfg.Scraper.CronSpec)
	}
}

// runScheduled runs a full scrape immediately, then on the configured
// cron schedule until a shutdown signal arrives.
func runScheduled(ctx context.Context, cancel context.CancelFunc, orch *orchestrator.Orchestrator, spec string) {
	if err := orch.ScrapeAll(ctx); err != nil {
		log.Printf("Initial scrape: %v", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := orch.ScrapeAll(ctx); err != nil {
			log.Printf("Scheduled scrape: %v", err)
		}
	}); err != nil {
		log.Fatalf("Invalid cron spec %q: %v", spec, err)
	}
	c.Start()
	log.Printf("Scheduler started: %s", spec)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, stopping...")
	cancel()
	<-c.Stop().Done()
	log.Println("Scheduler stopped")
}
