package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/trackline/jobsonar/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implements Store on PostgreSQL.
type Postgres struct {
	conn *sql.DB // nil inside a transaction
	db   querier
}

// NewPostgres opens a connection, verifies it, and creates the schema
// if missing.
func NewPostgres(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p := &Postgres{conn: db, db: db}
	if err := p.ensureTables(); err != nil {
		return nil, fmt.Errorf("ensure tables: %w", err)
	}
	return p, nil
}

func (p *Postgres) ensureTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			website TEXT,
			careers_url TEXT,
			industry TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			scraping_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS job_positions (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			external_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			location TEXT,
			job_url TEXT NOT NULL,
			department TEXT,
			employment_type TEXT,
			remote_type TEXT,
			seniority_level TEXT,
			posted_date TIMESTAMP WITH TIME ZONE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			first_seen_at TIMESTAMP WITH TIME ZONE NOT NULL,
			last_seen_at TIMESTAMP WITH TIME ZONE NOT NULL,
			scraped_at TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			duplicate_metadata JSONB,
			UNIQUE (company_id, external_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_positions_active
			ON job_positions (company_id, is_active)`,
		`CREATE TABLE IF NOT EXISTS scraping_sessions (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			completed_at TIMESTAMP WITH TIME ZONE,
			jobs_found INTEGER NOT NULL DEFAULT 0,
			jobs_new INTEGER NOT NULL DEFAULT 0,
			jobs_updated INTEGER NOT NULL DEFAULT 0,
			jobs_removed INTEGER NOT NULL DEFAULT 0,
			jobs_filtered_location INTEGER NOT NULL DEFAULT 0,
			errors JSONB,
			performance_metrics JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			company_ids BIGINT[],
			keywords TEXT[],
			excluded_keywords TEXT[],
			locations TEXT[],
			departments TEXT[],
			employment_types TEXT[],
			remote_types TEXT[],
			seniority_levels TEXT[],
			notification_method TEXT,
			trigger_count INTEGER NOT NULL DEFAULT 0,
			last_triggered_at TIMESTAMP WITH TIME ZONE
		)`,
		`CREATE TABLE IF NOT EXISTS alert_notifications (
			id BIGSERIAL PRIMARY KEY,
			alert_id BIGINT NOT NULL REFERENCES alerts(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			job_position_ids BIGINT[] NOT NULL,
			job_count INTEGER NOT NULL,
			delivery_method TEXT,
			delivery_status TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
	}
	for _, q := range queries {
		if _, err := p.conn.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// WithTx runs fn inside one transaction. Calls nested inside an open
// transaction reuse it rather than starting another.
func (p *Postgres) WithTx(ctx context.Context, fn func(Store) error) error {
	if p.conn == nil {
		return fn(p)
	}
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Postgres{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertCompany(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (name, website, careers_url, industry, is_active, scraping_enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			website = EXCLUDED.website,
			careers_url = EXCLUDED.careers_url,
			industry = EXCLUDED.industry,
			is_active = EXCLUDED.is_active,
			scraping_enabled = EXCLUDED.scraping_enabled,
			updated_at = NOW()
		RETURNING id`
	return p.db.QueryRowContext(ctx, query,
		c.Name, c.Website, c.CareersURL, c.Industry, c.IsActive, c.ScrapingEnabled,
	).Scan(&c.ID)
}

func (p *Postgres) CompanyByName(ctx context.Context, name string) (*domain.Company, error) {
	query := `
		SELECT id, name, website, careers_url, industry, is_active, scraping_enabled
		FROM companies WHERE name = $1`
	c := &domain.Company{}
	err := p.db.QueryRowContext(ctx, query, name).Scan(
		&c.ID, &c.Name, &c.Website, &c.CareersURL, &c.Industry, &c.IsActive, &c.ScrapingEnabled,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query company: %w", err)
	}
	return c, nil
}

func (p *Postgres) ActiveCompanies(ctx context.Context) ([]*domain.Company, error) {
	query := `
		SELECT id, name, website, careers_url, industry, is_active, scraping_enabled
		FROM companies WHERE is_active ORDER BY name`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var companies []*domain.Company
	for rows.Next() {
		c := &domain.Company{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Website, &c.CareersURL, &c.Industry, &c.IsActive, &c.ScrapingEnabled); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

const jobColumns = `id, company_id, external_id, title, description, location, job_url,
	department, employment_type, remote_type, seniority_level, posted_date,
	is_active, first_seen_at, last_seen_at, scraped_at, created_at, duplicate_metadata`

func (p *Postgres) InsertJob(ctx context.Context, job *domain.JobPosition) error {
	meta, err := marshalDuplicateMeta(job.Duplicate)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO job_positions (
			company_id, external_id, title, description, location, job_url,
			department, employment_type, remote_type, seniority_level, posted_date,
			is_active, first_seen_at, last_seen_at, scraped_at, duplicate_metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at`
	return p.db.QueryRowContext(ctx, query,
		job.CompanyID, job.ExternalID, job.Title, job.Description, job.Location, job.JobURL,
		job.Department, job.EmploymentType, job.RemoteType, job.SeniorityLevel, job.PostedDate,
		job.IsActive, job.FirstSeenAt, job.LastSeenAt, job.ScrapedAt, meta,
	).Scan(&job.ID, &job.CreatedAt)
}

func (p *Postgres) UpdateJob(ctx context.Context, job *domain.JobPosition) error {
	meta, err := marshalDuplicateMeta(job.Duplicate)
	if err != nil {
		return err
	}
	query := `
		UPDATE job_positions SET
			title = $2, description = $3, location = $4, job_url = $5,
			department = $6, employment_type = $7, remote_type = $8,
			seniority_level = $9, posted_date = $10, is_active = $11,
			last_seen_at = $12, scraped_at = $13, duplicate_metadata = $14
		WHERE id = $1`
	_, err = p.db.ExecContext(ctx, query,
		job.ID, job.Title, job.Description, job.Location, job.JobURL,
		job.Department, job.EmploymentType, job.RemoteType,
		job.SeniorityLevel, job.PostedDate, job.IsActive,
		job.LastSeenAt, job.ScrapedAt, meta,
	)
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	return nil
}

func (p *Postgres) JobByExternalID(ctx context.Context, companyID int64, externalID string) (*domain.JobPosition, error) {
	query := `SELECT ` + jobColumns + ` FROM job_positions WHERE company_id = $1 AND external_id = $2`
	job, err := scanJob(p.db.QueryRowContext(ctx, query, companyID, externalID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

func (p *Postgres) JobsByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*domain.JobPosition, error) {
	query := `SELECT ` + jobColumns + ` FROM job_positions WHERE company_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	rows, err := p.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	return scanJobs(rows)
}

func (p *Postgres) JobsByIDs(ctx context.Context, ids []int64) ([]*domain.JobPosition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + jobColumns + ` FROM job_positions WHERE id = ANY($1)`
	rows, err := p.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query jobs by ids: %w", err)
	}
	return scanJobs(rows)
}

func (p *Postgres) ActiveJobsSince(ctx context.Context, since time.Time) ([]*domain.JobPosition, error) {
	query := `SELECT ` + jobColumns + ` FROM job_positions WHERE is_active AND first_seen_at >= $1`
	rows, err := p.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query recent jobs: %w", err)
	}
	return scanJobs(rows)
}

func (p *Postgres) DeactivateMissing(ctx context.Context, companyID int64, seen map[string]bool) (int, error) {
	observed := make([]string, 0, len(seen))
	for id := range seen {
		observed = append(observed, id)
	}
	query := `
		UPDATE job_positions SET is_active = FALSE
		WHERE company_id = $1 AND is_active AND NOT (external_id = ANY($2))`
	res, err := p.db.ExecContext(ctx, query, companyID, pq.Array(observed))
	if err != nil {
		return 0, fmt.Errorf("deactivate jobs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (p *Postgres) CreateSession(ctx context.Context, s *domain.ScrapingSession) error {
	query := `
		INSERT INTO scraping_sessions (company_id, status, started_at)
		VALUES ($1, $2, $3) RETURNING id`
	return p.db.QueryRowContext(ctx, query, s.CompanyID, s.Status, s.StartedAt).Scan(&s.ID)
}

func (p *Postgres) UpdateSession(ctx context.Context, s *domain.ScrapingSession) error {
	var errsJSON, metricsJSON []byte
	var err error
	if len(s.Errors) > 0 {
		if errsJSON, err = json.Marshal(s.Errors); err != nil {
			return fmt.Errorf("encode session errors: %w", err)
		}
	}
	if len(s.Metrics) > 0 {
		if metricsJSON, err = json.Marshal(s.Metrics); err != nil {
			return fmt.Errorf("encode session metrics: %w", err)
		}
	}
	query := `
		UPDATE scraping_sessions SET
			status = $2, completed_at = $3,
			jobs_found = $4, jobs_new = $5, jobs_updated = $6,
			jobs_removed = $7, jobs_filtered_location = $8,
			errors = $9, performance_metrics = $10
		WHERE id = $1`
	_, err = p.db.ExecContext(ctx, query,
		s.ID, s.Status, s.CompletedAt,
		s.JobsFound, s.JobsNew, s.JobsUpdated,
		s.JobsRemoved, s.JobsFilteredLocation,
		nullable(errsJSON), nullable(metricsJSON),
	)
	if err != nil {
		return fmt.Errorf("update session %d: %w", s.ID, err)
	}
	return nil
}

func (p *Postgres) ActiveAlerts(ctx context.Context) ([]*domain.Alert, error) {
	query := alertSelect + ` WHERE is_active`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (p *Postgres) AlertByID(ctx context.Context, id int64) (*domain.Alert, error) {
	query := alertSelect + ` WHERE id = $1`
	rows, err := p.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query alert: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanAlert(rows)
}

const alertSelect = `
	SELECT id, user_id, name, is_active, company_ids, keywords, excluded_keywords,
		locations, departments, employment_types, remote_types, seniority_levels,
		notification_method, trigger_count, last_triggered_at
	FROM alerts`

func scanAlert(rows *sql.Rows) (*domain.Alert, error) {
	a := &domain.Alert{}
	var notifMethod sql.NullString
	err := rows.Scan(
		&a.ID, &a.UserID, &a.Name, &a.IsActive,
		pq.Array(&a.CompanyIDs), pq.Array(&a.Keywords), pq.Array(&a.ExcludedKeywords),
		pq.Array(&a.Locations), pq.Array(&a.Departments), pq.Array(&a.EmploymentTypes),
		pq.Array(&a.RemoteTypes), pq.Array(&a.SeniorityLevels),
		&notifMethod, &a.TriggerCount, &a.LastTriggeredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.NotificationMethod = notifMethod.String
	return a, nil
}

func (p *Postgres) UpdateAlertTrigger(ctx context.Context, alertID int64, at time.Time) error {
	query := `
		UPDATE alerts SET trigger_count = trigger_count + 1, last_triggered_at = $2
		WHERE id = $1`
	if _, err := p.db.ExecContext(ctx, query, alertID, at); err != nil {
		return fmt.Errorf("update alert trigger: %w", err)
	}
	return nil
}

func (p *Postgres) InsertNotification(ctx context.Context, n *domain.AlertNotification) error {
	query := `
		INSERT INTO alert_notifications (alert_id, user_id, job_position_ids, job_count, delivery_method, delivery_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return p.db.QueryRowContext(ctx, query,
		n.AlertID, n.UserID, pq.Array(n.JobPositionIDs), n.JobCount, n.DeliveryMethod, n.DeliveryStatus,
	).Scan(&n.ID, &n.CreatedAt)
}

func (p *Postgres) NotifiedPairs(ctx context.Context, alertIDs []int64) (map[[2]int64]bool, error) {
	pairs := make(map[[2]int64]bool)
	if len(alertIDs) == 0 {
		return pairs, nil
	}
	query := `
		SELECT alert_id, unnest(job_position_ids)
		FROM alert_notifications WHERE alert_id = ANY($1)`
	rows, err := p.db.QueryContext(ctx, query, pq.Array(alertIDs))
	if err != nil {
		return nil, fmt.Errorf("query notified pairs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var alertID, jobID int64
		if err := rows.Scan(&alertID, &jobID); err != nil {
			return nil, fmt.Errorf("scan notified pair: %w", err)
		}
		pairs[[2]int64{alertID, jobID}] = true
	}
	return pairs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.JobPosition, error) {
	job := &domain.JobPosition{}
	var desc, loc, dept, empType, remoteType, seniority sql.NullString
	var meta []byte
	err := row.Scan(
		&job.ID, &job.CompanyID, &job.ExternalID, &job.Title, &desc, &loc, &job.JobURL,
		&dept, &empType, &remoteType, &seniority, &job.PostedDate,
		&job.IsActive, &job.FirstSeenAt, &job.LastSeenAt, &job.ScrapedAt, &job.CreatedAt, &meta,
	)
	if err != nil {
		return nil, err
	}
	job.Description = desc.String
	job.Location = loc.String
	job.Department = dept.String
	job.EmploymentType = empType.String
	job.RemoteType = remoteType.String
	job.SeniorityLevel = seniority.String
	if len(meta) > 0 {
		var dm domain.DuplicateMeta
		if err := json.Unmarshal(meta, &dm); err != nil {
			return nil, fmt.Errorf("decode duplicate metadata: %w", err)
		}
		job.Duplicate = &dm
	}
	return job, nil
}

func scanJobs(rows *sql.Rows) ([]*domain.JobPosition, error) {
	defer rows.Close()
	var jobs []*domain.JobPosition
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func marshalDuplicateMeta(meta *domain.DuplicateMeta) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode duplicate metadata: %w", err)
	}
	return data, nil
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ Store = (*Postgres)(nil)
