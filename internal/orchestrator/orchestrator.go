package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/trackline/jobsonar/internal/companies"
	"github.com/trackline/jobsonar/internal/config"
	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/location"
	"github.com/trackline/jobsonar/internal/match"
	"github.com/trackline/jobsonar/internal/queue"
	"github.com/trackline/jobsonar/internal/scraper"
	"github.com/trackline/jobsonar/internal/store"
)

// ScraperFactory builds the scraper for one company. Tests substitute
// it to feed fixture jobs through the full reconciliation path.
type ScraperFactory func(company *domain.Company, entry *companies.CompanyEntry, opts scraper.Options, fallbackCountries []string) (scraper.Scraper, error)

// BatchPublisher hands freshly reconciled job IDs to the matcher
// worker. Nil disables the handoff.
type BatchPublisher interface {
	Publish(ctx context.Context, batch *queue.JobBatch) error
}

// JobIndexer pushes reconciled jobs into the search index. Nil
// disables indexing.
type JobIndexer interface {
	BulkIndex(ctx context.Context, jobs []*domain.JobPosition) error
}

// Result is what one company run produced beyond the session row.
type Result struct {
	Session *domain.ScrapingSession
	// IDs of rows inserted or materially changed by this run, in
	// the order they were reconciled.
	ChangedJobIDs []int64
}

// Orchestrator drives the scrape-then-reconcile cycle per company.
type Orchestrator struct {
	store       store.Store
	file        *companies.File
	opts        scraper.Options
	countries   []string
	batchFilter *location.Filter
	deduper     *match.Deduper
	companies   *match.CompanyMatcher
	publisher   BatchPublisher
	indexer     JobIndexer
	newScraper  ScraperFactory
}

// New builds an orchestrator. The batch-level location filter uses the
// same predicate as the per-scraper filters so results stay consistent.
func New(st store.Store, file *companies.File, cfg config.ScraperConfig, publisher BatchPublisher) (*Orchestrator, error) {
	batchFilter, err := location.NewFilter(len(cfg.AllowedCountries) > 0, cfg.AllowedCountries, nil)
	if err != nil {
		return nil, fmt.Errorf("build batch location filter: %w", err)
	}
	return &Orchestrator{
		store:       st,
		file:        file,
		opts:        scraper.OptionsFromConfig(cfg),
		countries:   cfg.AllowedCountries,
		batchFilter: batchFilter,
		deduper:     match.NewDeduper(),
		companies:   match.NewCompanyMatcher(),
		publisher:   publisher,
		newScraper:  scraper.New,
	}, nil
}

// SetScraperFactory overrides how scrapers are constructed.
func (o *Orchestrator) SetScraperFactory(f ScraperFactory) {
	o.newScraper = f
}

// SetIndexer enables search indexing of a company's active jobs after
// each completed session.
func (o *Orchestrator) SetIndexer(idx JobIndexer) {
	o.indexer = idx
}

// ScrapeCompany runs the full cycle for one configured company:
// session bookkeeping, scrape with guaranteed teardown, and a single
// reconciliation transaction. The session row survives failures with
// the error recorded.
func (o *Orchestrator) ScrapeCompany(ctx context.Context, name string) (*Result, error) {
	entry := o.file.Get(name)
	if entry == nil {
		return nil, fmt.Errorf("company %q not in companies file", name)
	}
	company, err := o.ensureCompany(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !company.ScrapingEnabled {
		return nil, fmt.Errorf("company %q has scraping disabled", name)
	}

	session := &domain.ScrapingSession{
		CompanyID: company.ID,
		Status:    domain.SessionPending,
		StartedAt: time.Now().UTC(),
	}
	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Status = domain.SessionRunning
	if err := o.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("mark session running: %w", err)
	}

	result := &Result{Session: session}
	if err := o.runScrape(ctx, company, entry, session, result); err != nil {
		session.Status = domain.SessionFailed
		session.AddError("scrape_error", err.Error())
		o.finishSession(ctx, session)
		return result, fmt.Errorf("scrape %s: %w", name, err)
	}

	session.Status = domain.SessionCompleted
	o.finishSession(ctx, session)

	if o.publisher != nil && len(result.ChangedJobIDs) > 0 {
		batch := &queue.JobBatch{
			CompanyID: company.ID,
			JobIDs:    result.ChangedJobIDs,
			ScrapedAt: session.StartedAt.Format(time.RFC3339),
		}
		if err := o.publisher.Publish(ctx, batch); err != nil {
			log.Printf("[%s] publish job batch: %v", name, err)
		}
	}
	if o.indexer != nil {
		active, err := o.store.JobsByCompany(ctx, company.ID, true)
		if err != nil {
			log.Printf("[%s] load jobs for indexing: %v", name, err)
		} else if err := o.indexer.BulkIndex(ctx, active); err != nil {
			log.Printf("[%s] bulk index: %v", name, err)
		}
	}
	log.Printf("[%s] scrape completed: found=%d new=%d updated=%d removed=%d filtered=%d",
		name, session.JobsFound, session.JobsNew, session.JobsUpdated, session.JobsRemoved, session.JobsFilteredLocation)
	return result, nil
}

func (o *Orchestrator) runScrape(ctx context.Context, company *domain.Company, entry *companies.CompanyEntry, session *domain.ScrapingSession, result *Result) error {
	s, err := o.newScraper(company, entry, o.opts, o.countries)
	if err != nil {
		return err
	}
	jobs, err := scraper.Run(ctx, s)
	if err != nil {
		return err
	}
	stats := s.Stats()
	session.JobsFound = stats.Found
	session.JobsFilteredLocation = stats.FilteredLocation
	session.Metrics = map[string]any{
		"jobs_invalid":  stats.Invalid,
		"requests_made": stats.Requests,
	}

	return o.store.WithTx(ctx, func(tx store.Store) error {
		return o.reconcile(ctx, tx, company, jobs, session, result)
	})
}

// reconcile applies one scrape result to the persisted state:
// update-or-insert every observed job, then deactivate active rows the
// scrape no longer contains. Deactivation is the only removal
// mechanism; rows are never deleted.
func (o *Orchestrator) reconcile(ctx context.Context, st store.Store, company *domain.Company, jobs []domain.Job, session *domain.ScrapingSession, result *Result) error {
	now := time.Now().UTC()

	// batch-level filter backstops whatever the scraper let through
	allowed := make([]domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if !o.batchFilter.Allowed(job.Location) {
			session.JobsFilteredLocation++
			continue
		}
		allowed = append(allowed, job)
	}

	seen := make(map[string]bool, len(allowed))
	existing, err := st.JobsByCompany(ctx, company.ID, false)
	if err != nil {
		return fmt.Errorf("load existing jobs: %w", err)
	}

	for _, job := range allowed {
		seen[job.ExternalID] = true
		current, err := st.JobByExternalID(ctx, company.ID, job.ExternalID)
		switch {
		case err == nil:
			changed := applyJobUpdate(current, job, now)
			if err := st.UpdateJob(ctx, current); err != nil {
				return err
			}
			if changed {
				session.JobsUpdated++
				result.ChangedJobIDs = append(result.ChangedJobIDs, current.ID)
			}
		case err == store.ErrNotFound:
			row := newJobRow(company.ID, job, now)
			dup, score, needsReview := o.deduper.CheckForDuplicate(existing, job.Title, job.Location, 0)
			if dup != nil && o.deduper.IsSame(score) {
				// same posting under a new external ID; refresh the
				// existing row instead of creating an unrelated one
				seen[dup.ExternalID] = true
				dup.LastSeenAt = now
				dup.ScrapedAt = now
				dup.IsActive = true
				if err := st.UpdateJob(ctx, dup); err != nil {
					return err
				}
				continue
			}
			if dup != nil && needsReview {
				row.Duplicate = &domain.DuplicateMeta{
					Score:         score,
					DuplicateOfID: dup.ID,
					NeedsReview:   true,
				}
			}
			if err := st.InsertJob(ctx, row); err != nil {
				return err
			}
			existing = append(existing, row)
			session.JobsNew++
			result.ChangedJobIDs = append(result.ChangedJobIDs, row.ID)
		default:
			return err
		}
	}

	removed, err := st.DeactivateMissing(ctx, company.ID, seen)
	if err != nil {
		return err
	}
	session.JobsRemoved = removed
	return nil
}

// applyJobUpdate diffs a scraped job against the persisted row and
// applies changes, reporting whether any field differed. Locations are
// re-normalized on change and reappearing rows are reactivated.
func applyJobUpdate(current *domain.JobPosition, job domain.Job, now time.Time) bool {
	changed := false
	normalizedLoc := location.Normalize(job.Location)
	set := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&current.Title, job.Title)
	set(&current.Description, job.Description)
	set(&current.Location, normalizedLoc)
	set(&current.JobURL, job.JobURL)
	set(&current.Department, job.Department)
	set(&current.EmploymentType, job.EmploymentType)
	set(&current.RemoteType, job.RemoteType)
	set(&current.SeniorityLevel, job.SeniorityLevel)
	if job.PostedDate != nil && (current.PostedDate == nil || !current.PostedDate.Equal(*job.PostedDate)) {
		current.PostedDate = job.PostedDate
		changed = true
	}
	if !current.IsActive {
		current.IsActive = true
		changed = true
	}
	current.LastSeenAt = now
	current.ScrapedAt = now
	return changed
}

func newJobRow(companyID int64, job domain.Job, now time.Time) *domain.JobPosition {
	return &domain.JobPosition{
		CompanyID:      companyID,
		ExternalID:     job.ExternalID,
		Title:          job.Title,
		Description:    job.Description,
		Location:       location.Normalize(job.Location),
		JobURL:         job.JobURL,
		Department:     job.Department,
		EmploymentType: job.EmploymentType,
		RemoteType:     job.RemoteType,
		SeniorityLevel: job.SeniorityLevel,
		PostedDate:     job.PostedDate,
		IsActive:       true,
		FirstSeenAt:    now,
		LastSeenAt:     now,
		ScrapedAt:      now,
	}
}

// ScrapeAll runs every enabled company sequentially. A failing company
// is logged and skipped; the batch continues.
func (o *Orchestrator) ScrapeAll(ctx context.Context) error {
	var failed int
	for i := range o.file.Companies {
		entry := &o.file.Companies[i]
		if !entry.Enabled() {
			continue
		}
		if _, err := o.ScrapeCompany(ctx, entry.Name); err != nil {
			failed++
			log.Printf("[%s] scrape failed: %v", entry.Name, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d companies failed", failed, len(o.file.Companies))
	}
	return nil
}

// IngestAggregated folds jobs from an aggregator feed, where the
// company is only a free-text name, into the canonical tables. The
// name is resolved through the company matcher; unmatched names are
// rejected rather than creating companies from dirty feed data.
// Aggregator feeds are partial, so nothing is deactivated.
func (o *Orchestrator) IngestAggregated(ctx context.Context, externalName string, jobs []domain.Job) (*Result, error) {
	known, err := o.store.ActiveCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load companies: %w", err)
	}
	company, score := o.companies.FindMatch(externalName, known)
	if company == nil {
		return nil, fmt.Errorf("no company match for %q (best score %.2f)", externalName, score)
	}
	log.Printf("[%s] matched aggregated source %q (score %.2f)", company.Name, externalName, score)

	for i := range jobs {
		scraper.NormalizeJob(&jobs[i], company.Name, company.CareersURL)
	}
	result := &Result{Session: &domain.ScrapingSession{CompanyID: company.ID}}
	err = o.store.WithTx(ctx, func(tx store.Store) error {
		now := time.Now().UTC()
		existing, err := tx.JobsByCompany(ctx, company.ID, false)
		if err != nil {
			return fmt.Errorf("load existing jobs: %w", err)
		}
		for _, job := range jobs {
			if !o.batchFilter.Allowed(job.Location) {
				result.Session.JobsFilteredLocation++
				continue
			}
			result.Session.JobsFound++
			current, err := tx.JobByExternalID(ctx, company.ID, job.ExternalID)
			switch {
			case err == nil:
				if applyJobUpdate(current, job, now) {
					result.Session.JobsUpdated++
					result.ChangedJobIDs = append(result.ChangedJobIDs, current.ID)
				}
				if err := tx.UpdateJob(ctx, current); err != nil {
					return err
				}
			case err == store.ErrNotFound:
				dup, score, needsReview := o.deduper.CheckForDuplicate(existing, job.Title, job.Location, 0)
				if dup != nil && o.deduper.IsSame(score) {
					continue
				}
				row := newJobRow(company.ID, job, now)
				if dup != nil && needsReview {
					row.Duplicate = &domain.DuplicateMeta{
						Score:         score,
						DuplicateOfID: dup.ID,
						NeedsReview:   true,
					}
				}
				if err := tx.InsertJob(ctx, row); err != nil {
					return err
				}
				existing = append(existing, row)
				result.Session.JobsNew++
				result.ChangedJobIDs = append(result.ChangedJobIDs, row.ID)
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) ensureCompany(ctx context.Context, entry *companies.CompanyEntry) (*domain.Company, error) {
	company, err := o.store.CompanyByName(ctx, entry.Name)
	if err == store.ErrNotFound {
		company = &domain.Company{
			Name:            entry.Name,
			Website:         entry.Website,
			CareersURL:      entry.CareersURL,
			Industry:        entry.Industry,
			IsActive:        true,
			ScrapingEnabled: entry.Enabled(),
		}
		if err := o.store.UpsertCompany(ctx, company); err != nil {
			return nil, fmt.Errorf("create company %s: %w", entry.Name, err)
		}
		return company, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load company %s: %w", entry.Name, err)
	}
	return company, nil
}

func (o *Orchestrator) finishSession(ctx context.Context, session *domain.ScrapingSession) {
	done := time.Now().UTC()
	session.CompletedAt = &done
	if session.Metrics == nil {
		session.Metrics = map[string]any{}
	}
	session.Metrics["duration_seconds"] = session.Duration().Seconds()
	if err := o.store.UpdateSession(ctx, session); err != nil {
		log.Printf("update session %d: %v", session.ID, err)
	}
}
