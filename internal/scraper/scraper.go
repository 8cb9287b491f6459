package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/trackline/jobsonar/internal/companies"
	"github.com/trackline/jobsonar/internal/config"
	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/location"
)

// Scraper fetches and normalizes one company's job postings. Setup
// acquires the underlying HTTP or browser resource, Teardown releases
// it; Run guarantees the pairing.
type Scraper interface {
	Setup(ctx context.Context) error
	Scrape(ctx context.Context) ([]domain.Job, error)
	Teardown() error
	Stats() Stats
}

// Stats counts what one scrape saw before reconciliation.
type Stats struct {
	Found            int
	Invalid          int
	FilteredLocation int
	Requests         int
}

// Options carries process-level scraper settings shared by every
// company.
type Options struct {
	RequestTimeout time.Duration
	RequestDelay   time.Duration
	UserAgent      string
}

func OptionsFromConfig(cfg config.ScraperConfig) Options {
	return Options{
		RequestTimeout: cfg.RequestTimeout,
		RequestDelay:   cfg.RequestDelay,
		UserAgent:      cfg.UserAgent,
	}
}

// New constructs the scraper for a company entry based on its
// scraper_type. The company-level location filter falls back to the
// process-wide allowed countries when the entry configures none.
func New(company *domain.Company, entry *companies.CompanyEntry, opts Options, fallbackCountries []string) (Scraper, error) {
	filter, err := buildFilter(entry.Scraping.LocationFilter, fallbackCountries)
	if err != nil {
		return nil, fmt.Errorf("company %s: %w", entry.Name, err)
	}
	base := newBase(company, entry, opts, filter)

	switch entry.Scraping.ScraperType {
	case companies.TypeAPI, companies.TypeRequests, companies.TypeComeet,
		companies.TypeJibe, companies.TypeEightfold, companies.TypeWorkday:
		return newAPIScraper(base)
	case companies.TypeGraphQL, companies.TypeAshbyGraphQL, companies.TypeMetaGraphQL:
		return newGraphQLScraper(base)
	case companies.TypeRSS:
		return newRSSScraper(base), nil
	case companies.TypePlaywright, companies.TypeStatic, companies.TypeGetro, companies.TypePhenom:
		return newDOMScraper(base), nil
	default:
		return nil, fmt.Errorf("company %s: no scraper for type %q", entry.Name, entry.Scraping.ScraperType)
	}
}

func buildFilter(cfg *companies.LocationFilterConfig, fallbackCountries []string) (*location.Filter, error) {
	if cfg != nil {
		return location.NewFilter(cfg.Enabled, cfg.Countries, cfg.Keywords)
	}
	if len(fallbackCountries) == 0 {
		return location.NewFilter(false, nil, nil)
	}
	return location.NewFilter(true, fallbackCountries, nil)
}

// Run executes the full lifecycle against one scraper, guaranteeing
// teardown on every exit path.
func Run(ctx context.Context, s Scraper) (jobs []domain.Job, err error) {
	if err := s.Setup(ctx); err != nil {
		return nil, fmt.Errorf("scraper setup: %w", err)
	}
	defer func() {
		if terr := s.Teardown(); terr != nil && err == nil {
			err = fmt.Errorf("scraper teardown: %w", terr)
		}
	}()
	jobs, err = s.Scrape(ctx)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
