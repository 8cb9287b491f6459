package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/trackline/jobsonar/internal/cleaner"
	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/parser"
)

// scraped markup keeps basic formatting but nothing executable
var descCleaner = cleaner.NewCleaner()

// domScraper extracts jobs from rendered careers pages with CSS
// selectors. It serves plain static pages as well as Getro and Phenom
// boards, whose markup needs slightly different link handling.
type domScraper struct {
	*base
	collector *colly.Collector
}

func newDOMScraper(b *base) *domScraper {
	return &domScraper{base: b}
}

func (s *domScraper) Setup(ctx context.Context) error {
	c := colly.NewCollector(
		colly.UserAgent(s.opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.opts.RequestTimeout)
	if s.opts.RequestDelay > 0 {
		c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Delay:       s.opts.RequestDelay,
			RandomDelay: s.opts.RequestDelay / 2,
		})
	}
	s.collector = c
	return nil
}

func (s *domScraper) Teardown() error {
	if s.collector != nil {
		s.collector.Wait()
	}
	return nil
}

func (s *domScraper) Scrape(ctx context.Context) ([]domain.Job, error) {
	if v := s.entry.Scraping.EmbeddedVar; v != "" {
		return s.scrapeEmbedded(ctx, v)
	}
	sel := s.entry.Scraping.Selectors
	pageURL := s.pageURL()
	if pageURL == "" {
		return nil, fmt.Errorf("company %s: no careers URL to scrape", s.entry.Name)
	}

	var jobs []domain.Job
	var scrapeErr error

	collector := s.collector.Clone()
	collector.OnHTML(sel.JobList, func(el *colly.HTMLElement) {
		job := domain.Job{JobURL: s.extractLink(el)}
		if sel.Title != "" {
			job.Title = strings.TrimSpace(el.ChildText(sel.Title))
		} else {
			job.Title = visibleText(el.DOM)
		}
		if sel.Location != "" {
			job.Location = strings.TrimSpace(el.ChildText(sel.Location))
		}
		if sel.Department != "" {
			job.Department = strings.TrimSpace(el.ChildText(sel.Department))
		}
		if sel.Description != "" {
			desc, _ := el.DOM.Find(sel.Description).Html()
			job.Description = descCleaner.Clean(desc)
		}
		jobs = append(jobs, job)
	})
	collector.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("fetch %s: %w (status %d)", pageURL, err, r.StatusCode)
	})

	s.stats.Requests++
	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	collector.Wait()
	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return s.finalize(jobs), nil
}

// visibleText reads an element's rendered text, dropping script and
// style children that a raw text read would include.
func visibleText(sel *goquery.Selection) string {
	sel = sel.Clone()
	sel.Find("script, style").Remove()
	return strings.TrimSpace(sel.Text())
}

// extractLink finds the job URL for one list element. Comeet-style
// boards put it in a data attribute, Phenom uses a ph-* link element,
// plain boards an <a href>.
func (s *domScraper) extractLink(el *colly.HTMLElement) string {
	sel := s.entry.Scraping.Selectors
	if sel.LinkAttr != "" {
		target := el.Attr(sel.LinkAttr)
		if target == "" && sel.Link != "" {
			target = el.ChildAttr(sel.Link, sel.LinkAttr)
		}
		if target != "" {
			return el.Request.AbsoluteURL(target)
		}
	}
	link := ""
	if sel.Link != "" {
		link = el.ChildAttr(sel.Link, "href")
	}
	if link == "" {
		link = el.Attr("href")
	}
	if link == "" {
		link = el.ChildAttr("a", "href")
	}
	if link == "" {
		return ""
	}
	return el.Request.AbsoluteURL(link)
}

func (s *domScraper) pageURL() string {
	if s.entry.CareersURL != "" {
		return s.entry.CareersURL
	}
	if s.company.CareersURL != "" {
		return s.company.CareersURL
	}
	return s.company.Website
}

// scrapeEmbedded handles pages that inline their job list as a
// JavaScript array instead of rendering markup: fetch the page,
// extract the array, and run it through the configured field mapping.
func (s *domScraper) scrapeEmbedded(ctx context.Context, varName string) ([]domain.Job, error) {
	if len(s.entry.Scraping.FieldMapping) == 0 {
		return nil, fmt.Errorf("company %s: embedded extraction needs a field mapping", s.entry.Name)
	}
	p, err := parser.NewFieldMapParser(s.entry.Scraping.FieldMapping, s.baseURL())
	if err != nil {
		return nil, err
	}

	var page string
	collector := s.collector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		page = string(r.Body)
	})
	s.stats.Requests++
	if err := collector.Visit(s.pageURL()); err != nil {
		return nil, fmt.Errorf("visit %s: %w", s.pageURL(), err)
	}
	collector.Wait()

	records, err := parser.ExtractEmbeddedJSON(page, varName)
	if err != nil {
		return nil, err
	}
	jobs := make([]domain.Job, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, p.Parse(rec))
	}
	return s.finalize(jobs), nil
}
