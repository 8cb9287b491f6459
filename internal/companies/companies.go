package companies

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Known scraper types. Each one routes to a fetch routine and a parser.
const (
	TypeAPI          = "api"
	TypeRequests     = "requests"
	TypeComeet       = "comeet"
	TypeJibe         = "jibe"
	TypeEightfold    = "eightfold"
	TypeWorkday      = "workday"
	TypeRSS          = "rss"
	TypeGraphQL      = "graphql"
	TypeAshbyGraphQL = "ashby_graphql"
	TypeMetaGraphQL  = "meta_graphql"
	TypePlaywright   = "playwright"
	TypeStatic       = "static"
	TypeGetro        = "getro"
	TypePhenom       = "phenom"
)

// ScrapingConfig parameterizes one company's scraper end to end. The
// scraper_type selects the fetch routine; the remaining sections are
// required or ignored depending on that type, enforced by Validate.
type ScrapingConfig struct {
	ScraperType string `json:"scraper_type"`

	APIEndpoint string            `json:"api_endpoint,omitempty"`
	APIParams   map[string]string `json:"api_params,omitempty"`
	// Response shape hint for API scrapers: jibe, greenhouse, comeet,
	// or empty for auto-detection.
	APIFormat string `json:"api_format,omitempty"`

	Pagination   *PaginationConfig `json:"pagination,omitempty"`
	Response     *ResponseConfig   `json:"response,omitempty"`
	FieldMapping map[string]any    `json:"field_mapping,omitempty"`

	// Template for building absolute job URLs from record fields,
	// e.g. "https://jobs.example.com/{id}".
	URLTemplate string `json:"url_template,omitempty"`

	Selectors *Selectors `json:"selectors,omitempty"`

	// JavaScript variable holding the job list as an inline JSON
	// array; set for pages that ship data instead of markup.
	// Requires field_mapping.
	EmbeddedVar string `json:"embedded_var,omitempty"`

	RSSURL string `json:"rss_url,omitempty"`

	GraphQL *GraphQLConfig `json:"graphql,omitempty"`
	Workday *WorkdayConfig `json:"workday,omitempty"`

	LocationFilter *LocationFilterConfig `json:"location_filter,omitempty"`
}

type PaginationConfig struct {
	Type        string `json:"type,omitempty"`
	OffsetParam string `json:"offset_param,omitempty"`
	// Empty LimitParam means the source ignores page size hints
	// (offset-only pagination, e.g. eightfold).
	LimitParam string `json:"limit_param,omitempty"`
	PageSize   int    `json:"page_size,omitempty"`
	MaxPages   int    `json:"max_pages,omitempty"`
}

// ResponseConfig names where the records and total count live in an API
// response body. Empty keys fall back to format auto-detection.
type ResponseConfig struct {
	JobsKey  string `json:"jobs_key,omitempty"`
	TotalKey string `json:"total_key,omitempty"`
}

// Selectors drive DOM extraction for rendered-page scrapers.
type Selectors struct {
	JobList     string `json:"job_list"`
	Title       string `json:"title,omitempty"`
	Location    string `json:"location,omitempty"`
	Department  string `json:"department,omitempty"`
	Link        string `json:"link,omitempty"`
	Description string `json:"description,omitempty"`
	// Attribute holding the job link when it is not an href on an <a>
	LinkAttr string `json:"link_attr,omitempty"`
}

type GraphQLConfig struct {
	Endpoint  string         `json:"endpoint"`
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
	// Dot-separated path to the job list inside the response data,
	// e.g. "data.jobBoard.jobPostings".
	JobsPath string `json:"jobs_path"`
}

type WorkdayConfig struct {
	SearchText    string         `json:"search_text,omitempty"`
	AppliedFacets map[string]any `json:"applied_facets,omitempty"`
}

type LocationFilterConfig struct {
	Enabled   bool     `json:"enabled"`
	Countries []string `json:"countries,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

// CompanyEntry is one company in the companies file.
type CompanyEntry struct {
	Name            string         `json:"name"`
	Website         string         `json:"website,omitempty"`
	CareersURL      string         `json:"careers_url,omitempty"`
	Industry        string         `json:"industry,omitempty"`
	ScrapingEnabled *bool          `json:"scraping_enabled,omitempty"`
	Scraping        ScrapingConfig `json:"scraping"`
}

// Enabled reports whether this entry should be scraped. Missing flag
// defaults to enabled.
func (e *CompanyEntry) Enabled() bool {
	return e.ScrapingEnabled == nil || *e.ScrapingEnabled
}

type File struct {
	Companies []CompanyEntry `json:"companies"`
}

// Load reads and validates the companies file. Validation failures name
// the offending company so misconfigurations surface at startup, not
// mid-scrape.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read companies file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse companies file: %w", err)
	}
	if len(f.Companies) == 0 {
		return nil, fmt.Errorf("companies file %s has no companies", path)
	}
	seen := make(map[string]bool, len(f.Companies))
	for i := range f.Companies {
		e := &f.Companies[i]
		if e.Name == "" {
			return nil, fmt.Errorf("company at index %d has no name", i)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate company %q", e.Name)
		}
		seen[e.Name] = true
		if err := e.Scraping.Validate(); err != nil {
			return nil, fmt.Errorf("company %q: %w", e.Name, err)
		}
	}
	return &f, nil
}

// Get returns the entry for a company name, or nil.
func (f *File) Get(name string) *CompanyEntry {
	for i := range f.Companies {
		if f.Companies[i].Name == name {
			return &f.Companies[i]
		}
	}
	return nil
}

// Validate checks that the fields required by this config's scraper type
// are present.
func (c *ScrapingConfig) Validate() error {
	switch c.ScraperType {
	case TypeAPI, TypeRequests, TypeComeet:
		if c.APIEndpoint == "" {
			return fmt.Errorf("scraper_type %s requires api_endpoint", c.ScraperType)
		}
	case TypeJibe, TypeEightfold:
		if c.APIEndpoint == "" {
			return fmt.Errorf("scraper_type %s requires api_endpoint", c.ScraperType)
		}
		if c.Pagination == nil {
			return fmt.Errorf("scraper_type %s requires pagination", c.ScraperType)
		}
		if c.Pagination.OffsetParam == "" {
			return fmt.Errorf("scraper_type %s requires pagination.offset_param", c.ScraperType)
		}
		if c.Pagination.PageSize <= 0 {
			return fmt.Errorf("scraper_type %s requires pagination.page_size", c.ScraperType)
		}
	case TypeWorkday:
		if c.APIEndpoint == "" {
			return fmt.Errorf("scraper_type workday requires api_endpoint")
		}
	case TypeRSS:
		if c.RSSURL == "" {
			return fmt.Errorf("scraper_type rss requires rss_url")
		}
	case TypeGraphQL, TypeAshbyGraphQL, TypeMetaGraphQL:
		if c.GraphQL == nil {
			return fmt.Errorf("scraper_type %s requires graphql", c.ScraperType)
		}
		if c.GraphQL.Endpoint == "" || c.GraphQL.Query == "" {
			return fmt.Errorf("scraper_type %s requires graphql.endpoint and graphql.query", c.ScraperType)
		}
		if c.GraphQL.JobsPath == "" {
			return fmt.Errorf("scraper_type %s requires graphql.jobs_path", c.ScraperType)
		}
	case TypePlaywright, TypeStatic, TypeGetro, TypePhenom:
		if c.EmbeddedVar != "" {
			if len(c.FieldMapping) == 0 {
				return fmt.Errorf("embedded_var requires field_mapping")
			}
			break
		}
		if c.Selectors == nil || c.Selectors.JobList == "" {
			return fmt.Errorf("scraper_type %s requires selectors.job_list", c.ScraperType)
		}
	case "":
		return fmt.Errorf("scraper_type is required")
	default:
		return fmt.Errorf("unknown scraper_type %q", c.ScraperType)
	}
	if p := c.Pagination; p != nil {
		if p.PageSize < 0 {
			return fmt.Errorf("pagination.page_size must not be negative")
		}
		if p.MaxPages < 0 {
			return fmt.Errorf("pagination.max_pages must not be negative")
		}
	}
	return nil
}

// MaxPagesOrDefault returns the configured max page ceiling, or the
// given default when unset.
func (c *ScrapingConfig) MaxPagesOrDefault(def int) int {
	if c.Pagination != nil && c.Pagination.MaxPages > 0 {
		return c.Pagination.MaxPages
	}
	return def
}
