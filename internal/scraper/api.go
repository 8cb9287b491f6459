package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/trackline/jobsonar/internal/companies"
	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/parser"
)

const defaultMaxPages = 20

// apiScraper covers every JSON-over-HTTP source: plain endpoints,
// offset-paginated endpoints, and Workday's POST pagination.
type apiScraper struct {
	*base
	client  *http.Client
	limiter *rate.Limiter
	parse   parser.Parser
}

func newAPIScraper(b *base) (*apiScraper, error) {
	s := &apiScraper{base: b}
	format := b.entry.Scraping.APIFormat
	if format == "" {
		switch b.entry.Scraping.ScraperType {
		case companies.TypeComeet:
			format = "comeet"
		case companies.TypeJibe:
			format = "jibe"
		case companies.TypeEightfold:
			format = "eightfold"
		case companies.TypeWorkday:
			format = "workday"
		}
	}
	if len(b.entry.Scraping.FieldMapping) > 0 {
		p, err := parser.NewFieldMapParser(b.entry.Scraping.FieldMapping, b.baseURL())
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", b.entry.Name, err)
		}
		s.parse = p
	} else if format != "" {
		p, err := parser.ForFormat(format)
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", b.entry.Name, err)
		}
		s.parse = p
	}
	// nil parse means auto-detection on the first record
	return s, nil
}

func (s *apiScraper) Setup(ctx context.Context) error {
	s.client = &http.Client{Timeout: s.opts.RequestTimeout}
	if s.opts.RequestDelay > 0 {
		s.limiter = rate.NewLimiter(rate.Every(s.opts.RequestDelay), 1)
	}
	return nil
}

func (s *apiScraper) Teardown() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

func (s *apiScraper) Scrape(ctx context.Context) ([]domain.Job, error) {
	var records []map[string]any
	var err error
	switch s.entry.Scraping.ScraperType {
	case companies.TypeJibe, companies.TypeEightfold:
		records, err = s.fetchOffsetPaginated(ctx)
	case companies.TypeWorkday:
		records, err = s.fetchWorkday(ctx)
	default:
		records, err = s.fetchPlain(ctx)
	}
	if err != nil {
		return nil, err
	}
	return s.finalize(s.parseRecords(records)), nil
}

func (s *apiScraper) parseRecords(records []map[string]any) []domain.Job {
	if s.parse == nil && len(records) > 0 {
		p, err := parser.ForFormat(parser.DetectFormat(records[0]))
		if err != nil {
			return nil
		}
		s.parse = p
	}
	jobs := make([]domain.Job, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, s.parse.Parse(rec))
	}
	return jobs
}

func (s *apiScraper) fetchPlain(ctx context.Context) ([]map[string]any, error) {
	endpoint, err := s.endpointWithParams(nil)
	if err != nil {
		return nil, err
	}
	body, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	records, _, err := extractRecords(body, s.entry.Scraping.Response)
	return records, err
}

// fetchOffsetPaginated walks an offset-parameterized API. The loop
// stops on an empty page, a short page, or when the cumulative count
// reaches the reported total, and always under the max-page ceiling.
func (s *apiScraper) fetchOffsetPaginated(ctx context.Context) ([]map[string]any, error) {
	p := s.entry.Scraping.Pagination
	maxPages := s.entry.Scraping.MaxPagesOrDefault(defaultMaxPages)

	var all []map[string]any
	offset := 0
	for page := 0; page < maxPages; page++ {
		params := map[string]string{p.OffsetParam: fmt.Sprintf("%d", offset)}
		if p.LimitParam != "" {
			params[p.LimitParam] = fmt.Sprintf("%d", p.PageSize)
		}
		endpoint, err := s.endpointWithParams(params)
		if err != nil {
			return nil, err
		}
		body, err := s.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		records, total, err := extractRecords(body, s.entry.Scraping.Response)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}
		all = append(all, records...)
		offset += len(records)
		if len(records) < p.PageSize {
			break
		}
		if total > 0 && offset >= total {
			break
		}
	}
	return all, nil
}

// fetchWorkday pages through a Workday CXS endpoint with POST bodies.
func (s *apiScraper) fetchWorkday(ctx context.Context) ([]map[string]any, error) {
	cfg := s.entry.Scraping
	pageSize := 20
	offsetParam, limitParam := "offset", "limit"
	if p := cfg.Pagination; p != nil {
		if p.PageSize > 0 {
			pageSize = p.PageSize
		}
		if p.OffsetParam != "" {
			offsetParam = p.OffsetParam
		}
		if p.LimitParam != "" {
			limitParam = p.LimitParam
		}
	}
	searchText := ""
	appliedFacets := map[string]any{}
	if cfg.Workday != nil {
		searchText = cfg.Workday.SearchText
		if cfg.Workday.AppliedFacets != nil {
			appliedFacets = cfg.Workday.AppliedFacets
		}
	}
	maxPages := cfg.MaxPagesOrDefault(defaultMaxPages)

	var all []map[string]any
	offset := 0
	for page := 0; page < maxPages; page++ {
		payload := map[string]any{
			"appliedFacets": appliedFacets,
			limitParam:      pageSize,
			offsetParam:     offset,
			"searchText":    searchText,
		}
		body, err := s.post(ctx, cfg.APIEndpoint, payload)
		if err != nil {
			return nil, err
		}
		var resp map[string]any
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode workday response: %w", err)
		}
		records := recordsAt(resp, "jobPostings")
		total := intAt(resp, "total")
		if len(records) == 0 {
			break
		}
		all = append(all, records...)
		offset += len(records)
		if len(records) < pageSize {
			break
		}
		if total > 0 && offset >= total {
			break
		}
	}
	return all, nil
}

func (s *apiScraper) endpointWithParams(extra map[string]string) (string, error) {
	u, err := url.Parse(s.entry.Scraping.APIEndpoint)
	if err != nil {
		return "", fmt.Errorf("parse api endpoint: %w", err)
	}
	q := u.Query()
	for k, v := range s.entry.Scraping.APIParams {
		q.Set(k, v)
	}
	for k, v := range extra {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *apiScraper) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return s.do(ctx, req)
}

func (s *apiScraper) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return s.do(ctx, req)
}

func (s *apiScraper) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	s.stats.Requests++
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// extractRecords pulls the record list and reported total out of a
// response body. A configured jobs_key wins; otherwise a top-level
// array or one of the conventional wrapper keys is used.
func extractRecords(body []byte, rc *companies.ResponseConfig) ([]map[string]any, int, error) {
	var asList []map[string]any
	if err := json.Unmarshal(body, &asList); err == nil {
		return asList, 0, nil
	}
	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}
	total := 0
	if rc != nil && rc.TotalKey != "" {
		total = intAt(resp, rc.TotalKey)
	} else {
		for _, key := range []string{"total", "totalCount", "count"} {
			if total = intAt(resp, key); total > 0 {
				break
			}
		}
	}
	if rc != nil && rc.JobsKey != "" {
		return recordsAt(resp, rc.JobsKey), total, nil
	}
	for _, key := range []string{"jobs", "positions", "jobPostings", "postings", "data", "results"} {
		if records := recordsAt(resp, key); records != nil {
			return records, total, nil
		}
	}
	return nil, total, fmt.Errorf("no job list found in response")
}

// recordsAt reads a list of objects at a dot-separated path.
func recordsAt(resp map[string]any, path string) []map[string]any {
	cur := any(resp)
	for _, part := range splitPath(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	list, ok := cur.([]any)
	if !ok {
		return nil
	}
	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records
}

func intAt(resp map[string]any, path string) int {
	cur := any(resp)
	for _, part := range splitPath(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0
		}
		cur = m[part]
	}
	switch v := cur.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}
