package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobBatch is the message passed from the scraper to the matcher: the
// database IDs of jobs a completed reconciliation inserted or updated.
type JobBatch struct {
	CompanyID int64   `json:"company_id"`
	JobIDs    []int64 `json:"job_ids"`
	ScrapedAt string  `json:"scraped_at"`
}

// Publisher pushes job batches onto the Redis matcher queue.
type Publisher struct {
	client    *redis.Client
	queueName string
}

func NewPublisher(client *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = "jobs:new"
	}
	return &Publisher{client: client, queueName: queueName}
}

// Publish pushes one batch to the queue.
func (p *Publisher) Publish(ctx context.Context, batch *JobBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	if err := p.client.LPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// QueueLength returns the current queue length.
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName).Result()
}

// Consumer reads job batches from the matcher queue.
type Consumer struct {
	client    *redis.Client
	queueName string
	timeout   time.Duration
}

func NewConsumer(client *redis.Client, queueName string, timeout time.Duration) *Consumer {
	if queueName == "" {
		queueName = "jobs:new"
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Consumer{client: client, queueName: queueName, timeout: timeout}
}

// Consume blocks for one batch. Returns nil, nil on timeout.
func (c *Consumer) Consume(ctx context.Context) (*JobBatch, error) {
	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	var batch JobBatch
	if err := json.Unmarshal([]byte(result[1]), &batch); err != nil {
		return nil, fmt.Errorf("unmarshal batch: %w", err)
	}
	return &batch, nil
}

// Run consumes batches until the context is cancelled. Handler errors
// are logged, not fatal; one bad batch must not stop the worker.
func (c *Consumer) Run(ctx context.Context, handler func(*JobBatch) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := c.Consume(ctx)
		if err != nil {
			return fmt.Errorf("consume: %w", err)
		}
		if batch == nil {
			continue
		}
		if err := handler(batch); err != nil {
			log.Printf("[Matcher] handler error: %v", err)
		}
	}
}
