package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/parser"
)

// graphqlScraper posts a configured query to a GraphQL endpoint and
// reads the job list at a configured path in the response. Ashby and
// similar boards are served this way; sources whose pages issue the
// query client-side are scraped by posting the same query directly
// instead of driving a browser.
type graphqlScraper struct {
	*base
	api   *apiScraper
	parse parser.Parser
}

func newGraphQLScraper(b *base) (*graphqlScraper, error) {
	s := &graphqlScraper{base: b, api: &apiScraper{base: b}}
	if len(b.entry.Scraping.FieldMapping) > 0 {
		p, err := parser.NewFieldMapParser(b.entry.Scraping.FieldMapping, b.baseURL())
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", b.entry.Name, err)
		}
		s.parse = p
	} else {
		p, err := parser.ForFormat("ashby")
		if err != nil {
			return nil, err
		}
		s.parse = p
	}
	return s, nil
}

func (s *graphqlScraper) Setup(ctx context.Context) error {
	s.api.client = &http.Client{Timeout: s.opts.RequestTimeout}
	if s.opts.RequestDelay > 0 {
		s.api.limiter = rate.NewLimiter(rate.Every(s.opts.RequestDelay), 1)
	}
	return nil
}

func (s *graphqlScraper) Teardown() error {
	if s.api.client != nil {
		s.api.client.CloseIdleConnections()
	}
	return nil
}

func (s *graphqlScraper) Scrape(ctx context.Context) ([]domain.Job, error) {
	cfg := s.entry.Scraping.GraphQL
	payload := map[string]any{"query": cfg.Query}
	if len(cfg.Variables) > 0 {
		payload["variables"] = cfg.Variables
	}
	body, err := s.api.post(ctx, cfg.Endpoint, payload)
	if err != nil {
		return nil, err
	}
	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if errs, ok := resp["errors"].([]any); ok && len(errs) > 0 {
		return nil, fmt.Errorf("graphql errors: %v", errs)
	}
	records := recordsAt(resp, cfg.JobsPath)
	if records == nil {
		return nil, fmt.Errorf("no jobs at path %q in graphql response", cfg.JobsPath)
	}
	jobs := make([]domain.Job, 0, len(records))
	for _, rec := range records {
		job := s.parse.Parse(rec)
		if job.JobURL == "" && s.entry.Scraping.URLTemplate != "" {
			job.JobURL = expandURLTemplate(s.entry.Scraping.URLTemplate, rec)
		}
		jobs = append(jobs, job)
	}
	return s.finalize(jobs), nil
}

// expandURLTemplate substitutes {field} placeholders with record
// values, for boards whose API omits a ready-made job URL.
func expandURLTemplate(template string, rec map[string]any) string {
	out := template
	for {
		start := strings.IndexByte(out, '{')
		if start < 0 {
			return out
		}
		end := strings.IndexByte(out[start:], '}')
		if end < 0 {
			return out
		}
		end += start
		field := out[start+1 : end]
		val := ""
		switch v := rec[field].(type) {
		case string:
			val = v
		case float64:
			val = fmt.Sprintf("%.0f", v)
		}
		out = out[:start] + val + out[end+1:]
	}
}
