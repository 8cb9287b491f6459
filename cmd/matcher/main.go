package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trackline/jobsonar/internal/alert"
	"github.com/trackline/jobsonar/internal/config"
	"github.com/trackline/jobsonar/internal/queue"
	"github.com/trackline/jobsonar/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Alert Matcher Service")

	// Run one alert retroactively against recent jobs instead of
	// consuming the queue.
	alertID := flag.Int64("alert", 0, "match one alert against recent jobs and exit")
	flag.Parse()

	cfg := config.Load()

	st, err := store.NewPostgres(cfg.Postgres.ConnectionString)
	if err != nil {
		log.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer st.Close()
	log.Println("PostgreSQL connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	log.Println("Redis connected")

	engine := alert.NewEngine(st)
	engine.RetroactiveWindow = time.Duration(cfg.Matcher.RetroactiveDays) * 24 * time.Hour

	if *alertID != 0 {
		n, err := engine.ProcessAlertAgainstExistingJobs(ctx, *alertID)
		if err != nil {
			log.Fatalf("Retroactive match for alert %d: %v", *alertID, err)
		}
		if n == nil {
			log.Printf("Alert %d: no new matches", *alertID)
		} else {
			log.Printf("Alert %d: notification created for %d jobs", *alertID, n.JobCount)
		}
		return
	}

	publisher := queue.NewPublisher(rdb, cfg.Redis.JobQueue)
	if depth, err := publisher.QueueLength(ctx); err == nil {
		log.Printf("Queue %s depth at startup: %d", cfg.Redis.JobQueue, depth)
	}
	consumer := queue.NewConsumer(rdb, cfg.Redis.JobQueue, 5*time.Second)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	err = consumer.Run(ctx, func(batch *queue.JobBatch) error {
		log.Printf("Processing batch: company=%d jobs=%d", batch.CompanyID, len(batch.JobIDs))
		notifications, err := engine.ProcessNewJobs(ctx, batch.JobIDs)
		if err != nil {
			return err
		}
		log.Printf("Batch done: %d notifications", len(notifications))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Consumer stopped: %v", err)
	}
	log.Println("Graceful shutdown complete")
}
