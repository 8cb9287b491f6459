package scraper

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/parser"
)

// rssScraper fetches and decodes an RSS 2.0 job feed.
type rssScraper struct {
	*base
	client *http.Client
}

func newRSSScraper(b *base) *rssScraper {
	return &rssScraper{base: b}
}

func (s *rssScraper) Setup(ctx context.Context) error {
	s.client = &http.Client{Timeout: s.opts.RequestTimeout}
	return nil
}

func (s *rssScraper) Teardown() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

func (s *rssScraper) Scrape(ctx context.Context) ([]domain.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.entry.Scraping.RSSURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	s.stats.Requests++
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, s.entry.Scraping.RSSURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	var feed parser.RSSFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	jobs := make([]domain.Job, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		jobs = append(jobs, parser.ParseRSSItem(item))
	}
	return s.finalize(jobs), nil
}
