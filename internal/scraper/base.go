package scraper

import (
	"log"

	"github.com/trackline/jobsonar/internal/companies"
	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/location"
)

// base carries what every scraper variant shares: the company, its
// configuration, the inline location filter, and scrape counters.
type base struct {
	company *domain.Company
	entry   *companies.CompanyEntry
	opts    Options
	filter  *location.Filter
	stats   Stats
}

func newBase(company *domain.Company, entry *companies.CompanyEntry, opts Options, filter *location.Filter) *base {
	return &base{
		company: company,
		entry:   entry,
		opts:    opts,
		filter:  filter,
	}
}

func (b *base) Stats() Stats {
	return b.stats
}

// finalize validates, filters, and normalizes raw parsed jobs, counting
// what gets dropped. Zero jobs from a parser mean "skip the record" and
// are counted as invalid.
func (b *base) finalize(raw []domain.Job) []domain.Job {
	jobs := make([]domain.Job, 0, len(raw))
	for i := range raw {
		job := raw[i]
		b.stats.Found++
		if job.IsZero() {
			b.stats.Invalid++
			continue
		}
		NormalizeJob(&job, b.company.Name, b.baseURL())
		if err := ValidateJob(&job); err != nil {
			b.stats.Invalid++
			log.Printf("[%s] skipping record: %v", b.company.Name, err)
			continue
		}
		if !b.filter.Allowed(job.Location) {
			b.stats.FilteredLocation++
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// baseURL is the root for resolving relative job links.
func (b *base) baseURL() string {
	if b.company.CareersURL != "" {
		return b.company.CareersURL
	}
	return b.company.Website
}
