package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/trackline/jobsonar/internal/domain"
)

// JobIndex mirrors active job positions into Elasticsearch for the
// search surface. Postgres stays the source of truth; documents here
// are replaceable at any time by re-indexing.
type JobIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewJobIndex connects to the cluster and verifies it responds.
func NewJobIndex(addresses []string, indexName string) (*JobIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}
	return &JobIndex{client: client, indexName: indexName}, nil
}

// EnsureIndex creates the index and mapping if missing.
func (i *JobIndex) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName})
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	mapping := `{
		"settings": {
			"analysis": {
				"analyzer": {
					"title_analyzer": {
						"type": "custom",
						"tokenizer": "standard",
						"filter": ["lowercase", "asciifolding"]
					}
				}
			}
		},
		"mappings": {
			"properties": {
				"id": {"type": "keyword"},
				"company_id": {"type": "keyword"},
				"external_id": {"type": "keyword"},
				"title": {
					"type": "text",
					"analyzer": "title_analyzer",
					"fields": {"keyword": {"type": "keyword"}}
				},
				"description": {"type": "text"},
				"location": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
				"job_url": {"type": "keyword"},
				"department": {"type": "keyword"},
				"employment_type": {"type": "keyword"},
				"remote_type": {"type": "keyword"},
				"seniority_level": {"type": "keyword"},
				"posted_date": {"type": "date"},
				"is_active": {"type": "boolean"},
				"first_seen_at": {"type": "date"},
				"last_seen_at": {"type": "date"},
				"scraped_at": {"type": "date"}
			}
		}
	}`

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}
	return nil
}

// Index writes a single job document.
func (i *JobIndex) Index(ctx context.Context, job *domain.JobPosition) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      i.indexName,
		DocumentID: strconv.FormatInt(job.ID, 10),
		Body:       bytes.NewReader(data),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index error: %s", res.Status())
	}
	return nil
}

// BulkIndex writes many job documents in one request. Per-document
// failures are logged and skipped; the bulk itself succeeds.
func (i *JobIndex) BulkIndex(ctx context.Context, jobs []*domain.JobPosition) error {
	if len(jobs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, job := range jobs {
		meta := map[string]any{
			"index": map[string]any{
				"_index": i.indexName,
				"_id":    strconv.FormatInt(job.ID, 10),
			},
		}
		metaBytes, _ := json.Marshal(meta)
		buf.Write(metaBytes)
		buf.WriteByte('\n')

		docBytes, err := json.Marshal(job)
		if err != nil {
			log.Printf("marshal job %d: %v", job.ID, err)
			continue
		}
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	res, err := i.client.Bulk(bytes.NewReader(buf.Bytes()), i.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk error: %s", res.Status())
	}

	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
				Error  struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("parse bulk response: %w", err)
	}
	if bulkRes.Errors {
		for _, item := range bulkRes.Items {
			if item.Index.Status >= 400 {
				log.Printf("bulk index error for %s: %s - %s",
					item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason)
			}
		}
	}
	return nil
}
