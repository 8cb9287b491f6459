package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trackline/jobsonar/internal/companies"
	"github.com/trackline/jobsonar/internal/config"
	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/queue"
	"github.com/trackline/jobsonar/internal/scraper"
	"github.com/trackline/jobsonar/internal/store"
)

type fakeScraper struct {
	jobs  []domain.Job
	err   error
	stats scraper.Stats
}

func (f *fakeScraper) Setup(ctx context.Context) error { return nil }
func (f *fakeScraper) Teardown() error                 { return nil }
func (f *fakeScraper) Stats() scraper.Stats            { return f.stats }

func (f *fakeScraper) Scrape(ctx context.Context) ([]domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs, nil
}

type capturingPublisher struct {
	batches []*queue.JobBatch
}

func (p *capturingPublisher) Publish(ctx context.Context, batch *queue.JobBatch) error {
	p.batches = append(p.batches, batch)
	return nil
}

func testFile() *companies.File {
	return &companies.File{Companies: []companies.CompanyEntry{
		{
			Name:       "Acme",
			Website:    "https://acme.example",
			CareersURL: "https://acme.example/careers",
			Scraping: companies.ScrapingConfig{
				ScraperType: companies.TypeAPI,
				APIEndpoint: "https://acme.example/api/jobs",
			},
		},
	}}
}

func testOrchestrator(t *testing.T, st store.Store, pub BatchPublisher) *Orchestrator {
	t.Helper()
	cfg := config.ScraperConfig{
		AllowedCountries: []string{"Israel"},
		RequestTimeout:   5 * time.Second,
		RequestDelay:     time.Millisecond,
	}
	o, err := New(st, testFile(), cfg, pub)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func job(id, title, loc string) domain.Job {
	return domain.Job{
		ExternalID: id,
		Title:      title,
		Location:   loc,
		JobURL:     "https://acme.example/careers/" + id,
	}
}

func TestScrapeCompanyLifecycle(t *testing.T) {
	st := store.NewMemory()
	pub := &capturingPublisher{}
	o := testOrchestrator(t, st, pub)

	firstRun := []domain.Job{
		job("1", "Backend Engineer", "Tel Aviv"),
		job("2", "Data Scientist", "Haifa, Israel"),
		job("3", "Product Manager", "Herzliya"),
	}
	o.SetScraperFactory(func(_ *domain.Company, _ *companies.CompanyEntry, _ scraper.Options, _ []string) (scraper.Scraper, error) {
		return &fakeScraper{jobs: firstRun, stats: scraper.Stats{Found: 3}}, nil
	})

	ctx := context.Background()
	res, err := o.ScrapeCompany(ctx, "Acme")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	s := res.Session
	if s.Status != domain.SessionCompleted {
		t.Fatalf("status = %q, want %q", s.Status, domain.SessionCompleted)
	}
	if s.JobsFound != 3 || s.JobsNew != 3 || s.JobsUpdated != 0 || s.JobsRemoved != 0 {
		t.Fatalf("first run stats: found=%d new=%d updated=%d removed=%d",
			s.JobsFound, s.JobsNew, s.JobsUpdated, s.JobsRemoved)
	}
	if s.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	company, err := st.CompanyByName(ctx, "Acme")
	if err != nil {
		t.Fatalf("company not created: %v", err)
	}
	active, err := st.JobsByCompany(ctx, company.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 3 {
		t.Fatalf("active jobs = %d, want 3", len(active))
	}
	for _, j := range active {
		if j.FirstSeenAt.IsZero() || j.LastSeenAt.IsZero() {
			t.Errorf("job %s missing seen timestamps", j.ExternalID)
		}
	}
	if len(pub.batches) != 1 || len(pub.batches[0].JobIDs) != 3 {
		t.Fatalf("expected one published batch of 3 IDs, got %+v", pub.batches)
	}

	// second run: job 3 gone, job 1 retitled, job 4 appears
	secondRun := []domain.Job{
		job("1", "Senior Backend Engineer", "Tel Aviv"),
		job("2", "Data Scientist", "Haifa, Israel"),
		job("4", "DevOps Engineer", "Tel Aviv, Israel"),
	}
	o.SetScraperFactory(func(_ *domain.Company, _ *companies.CompanyEntry, _ scraper.Options, _ []string) (scraper.Scraper, error) {
		return &fakeScraper{jobs: secondRun, stats: scraper.Stats{Found: 3}}, nil
	})

	res, err = o.ScrapeCompany(ctx, "Acme")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	s = res.Session
	if s.JobsNew != 1 || s.JobsUpdated != 1 || s.JobsRemoved != 1 {
		t.Fatalf("second run stats: new=%d updated=%d removed=%d",
			s.JobsNew, s.JobsUpdated, s.JobsRemoved)
	}

	active, err = st.JobsByCompany(ctx, company.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 3 {
		t.Fatalf("active jobs after second run = %d, want 3", len(active))
	}
	byExternal := map[string]*domain.JobPosition{}
	for _, j := range active {
		byExternal[j.ExternalID] = j
	}
	if byExternal["3"] != nil {
		t.Error("job 3 still active after removal")
	}
	if got := byExternal["1"].Title; got != "Senior Backend Engineer" {
		t.Errorf("job 1 title = %q, not updated", got)
	}

	removed, err := st.JobByExternalID(ctx, company.ID, "3")
	if err != nil {
		t.Fatal(err)
	}
	if removed.IsActive {
		t.Error("deactivated row reports active")
	}
}

func TestScrapeCompanyIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs": [
			{"id": 101, "title": "Backend Engineer", "absolute_url": "https://acme.example/jobs/101", "location": {"name": "Tel Aviv, Israel"}},
			{"id": 102, "title": "Data Scientist", "absolute_url": "https://acme.example/jobs/102", "location": {"name": "Haifa, Israel"}}
		]}`)
	}))
	defer srv.Close()

	st := store.NewMemory()
	o := testOrchestrator(t, st, nil)
	o.file.Companies[0].Scraping.APIEndpoint = srv.URL

	ctx := context.Background()
	res, err := o.ScrapeCompany(ctx, "Acme")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if res.Session.JobsNew != 2 {
		t.Fatalf("first run jobs_new = %d, want 2", res.Session.JobsNew)
	}

	// unchanged upstream: second run must be a no-op
	res, err = o.ScrapeCompany(ctx, "Acme")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	s := res.Session
	if s.JobsNew != 0 || s.JobsUpdated != 0 || s.JobsRemoved != 0 {
		t.Fatalf("second run not idempotent: new=%d updated=%d removed=%d",
			s.JobsNew, s.JobsUpdated, s.JobsRemoved)
	}
	company, _ := st.CompanyByName(ctx, "Acme")
	active, err := st.JobsByCompany(ctx, company.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active rows = %d, want 2", len(active))
	}
}

func TestScrapeCompanyReactivates(t *testing.T) {
	st := store.NewMemory()
	o := testOrchestrator(t, st, nil)
	ctx := context.Background()

	runs := [][]domain.Job{
		{job("1", "Backend Engineer", "Tel Aviv")},
		{},
		{job("1", "Backend Engineer", "Tel Aviv")},
	}
	var i int
	o.SetScraperFactory(func(_ *domain.Company, _ *companies.CompanyEntry, _ scraper.Options, _ []string) (scraper.Scraper, error) {
		jobs := runs[i]
		i++
		return &fakeScraper{jobs: jobs, stats: scraper.Stats{Found: len(jobs)}}, nil
	})

	for range runs {
		if _, err := o.ScrapeCompany(ctx, "Acme"); err != nil {
			t.Fatal(err)
		}
	}
	company, _ := st.CompanyByName(ctx, "Acme")
	j, err := st.JobByExternalID(ctx, company.ID, "1")
	if err != nil {
		t.Fatal(err)
	}
	if !j.IsActive {
		t.Error("reappearing job not reactivated")
	}
}

func TestScrapeCompanyBatchFilter(t *testing.T) {
	st := store.NewMemory()
	o := testOrchestrator(t, st, nil)
	o.SetScraperFactory(func(_ *domain.Company, _ *companies.CompanyEntry, _ scraper.Options, _ []string) (scraper.Scraper, error) {
		return &fakeScraper{
			jobs: []domain.Job{
				job("1", "Backend Engineer", "Tel Aviv"),
				job("2", "Backend Engineer", "London, UK"),
			},
			stats: scraper.Stats{Found: 2},
		}, nil
	})

	ctx := context.Background()
	res, err := o.ScrapeCompany(ctx, "Acme")
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.JobsNew != 1 {
		t.Fatalf("jobs_new = %d, want 1", res.Session.JobsNew)
	}
	if res.Session.JobsFilteredLocation != 1 {
		t.Fatalf("jobs_filtered_location = %d, want 1", res.Session.JobsFilteredLocation)
	}
}

func TestScrapeCompanyDuplicateExternalID(t *testing.T) {
	st := store.NewMemory()
	o := testOrchestrator(t, st, nil)
	ctx := context.Background()

	runs := [][]domain.Job{
		{job("old-1", "Backend Engineer", "Tel Aviv")},
		// the ATS reissued the posting under a fresh ID
		{job("new-9", "Backend Engineer", "Tel Aviv")},
	}
	var i int
	o.SetScraperFactory(func(_ *domain.Company, _ *companies.CompanyEntry, _ scraper.Options, _ []string) (scraper.Scraper, error) {
		jobs := runs[i]
		i++
		return &fakeScraper{jobs: jobs, stats: scraper.Stats{Found: 1}}, nil
	})

	if _, err := o.ScrapeCompany(ctx, "Acme"); err != nil {
		t.Fatal(err)
	}
	res, err := o.ScrapeCompany(ctx, "Acme")
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.JobsNew != 0 {
		t.Fatalf("jobs_new = %d, want 0 for identical posting", res.Session.JobsNew)
	}
	if res.Session.JobsRemoved != 0 {
		t.Fatalf("jobs_removed = %d, want 0 for identical posting", res.Session.JobsRemoved)
	}
	company, _ := st.CompanyByName(ctx, "Acme")
	active, err := st.JobsByCompany(ctx, company.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("active rows = %d, want 1", len(active))
	}
}

func TestIngestAggregated(t *testing.T) {
	st := store.NewMemory()
	o := testOrchestrator(t, st, nil)
	ctx := context.Background()

	company := &domain.Company{Name: "Acme Technologies", IsActive: true, ScrapingEnabled: true}
	if err := st.UpsertCompany(ctx, company); err != nil {
		t.Fatal(err)
	}

	// legal suffix in the feed name must not block the match
	res, err := o.IngestAggregated(ctx, "Acme Technologies Ltd.", []domain.Job{
		job("agg-1", "Backend Engineer", "Tel Aviv"),
		job("agg-2", "Frontend Engineer", "London, UK"),
	})
	if err != nil {
		t.Fatalf("IngestAggregated: %v", err)
	}
	if res.Session.JobsNew != 1 || res.Session.JobsFilteredLocation != 1 {
		t.Fatalf("new=%d filtered=%d, want 1 and 1",
			res.Session.JobsNew, res.Session.JobsFilteredLocation)
	}
	active, err := st.JobsByCompany(ctx, company.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("active jobs = %d, want 1", len(active))
	}

	// re-ingest must not duplicate and must not deactivate anything
	res, err = o.IngestAggregated(ctx, "Acme Technologies Ltd.", []domain.Job{
		job("agg-1", "Backend Engineer", "Tel Aviv"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.JobsNew != 0 || res.Session.JobsUpdated != 0 {
		t.Fatalf("re-ingest new=%d updated=%d, want 0 and 0",
			res.Session.JobsNew, res.Session.JobsUpdated)
	}

	if _, err := o.IngestAggregated(ctx, "Completely Different Corp", nil); err == nil {
		t.Fatal("expected error for unmatched company name")
	}
}

func TestScrapeCompanyFailureRecordsSession(t *testing.T) {
	st := store.NewMemory()
	o := testOrchestrator(t, st, nil)
	o.SetScraperFactory(func(_ *domain.Company, _ *companies.CompanyEntry, _ scraper.Options, _ []string) (scraper.Scraper, error) {
		return &fakeScraper{err: errors.New("upstream 503")}, nil
	})

	res, err := o.ScrapeCompany(context.Background(), "Acme")
	if err == nil {
		t.Fatal("expected error from failing scrape")
	}
	s := res.Session
	if s.Status != domain.SessionFailed {
		t.Fatalf("status = %q, want %q", s.Status, domain.SessionFailed)
	}
	if len(s.Errors) != 1 || s.Errors[0].Type != "scrape_error" {
		t.Fatalf("session errors = %+v", s.Errors)
	}
	if s.CompletedAt == nil {
		t.Error("failed session missing completed_at")
	}
}

func TestScrapeAllContinuesPastFailure(t *testing.T) {
	st := store.NewMemory()
	file := &companies.File{Companies: []companies.CompanyEntry{
		{
			Name:     "Broken",
			Website:  "https://broken.example",
			Scraping: companies.ScrapingConfig{ScraperType: companies.TypeAPI, APIEndpoint: "https://broken.example/api"},
		},
		{
			Name:     "Acme",
			Website:  "https://acme.example",
			Scraping: companies.ScrapingConfig{ScraperType: companies.TypeAPI, APIEndpoint: "https://acme.example/api"},
		},
	}}
	cfg := config.ScraperConfig{AllowedCountries: []string{"Israel"}}
	o, err := New(st, file, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	o.SetScraperFactory(func(c *domain.Company, _ *companies.CompanyEntry, _ scraper.Options, _ []string) (scraper.Scraper, error) {
		if c.Name == "Broken" {
			return &fakeScraper{err: errors.New("boom")}, nil
		}
		return &fakeScraper{
			jobs:  []domain.Job{job("1", "Backend Engineer", "Tel Aviv")},
			stats: scraper.Stats{Found: 1},
		}, nil
	})

	ctx := context.Background()
	if err := o.ScrapeAll(ctx); err == nil {
		t.Fatal("expected aggregate error")
	}
	company, err := st.CompanyByName(ctx, "Acme")
	if err != nil {
		t.Fatalf("healthy company not scraped: %v", err)
	}
	active, _ := st.JobsByCompany(ctx, company.ID, true)
	if len(active) != 1 {
		t.Fatalf("healthy company active jobs = %d, want 1", len(active))
	}
}
