package store

import (
	"context"
	"errors"
	"time"

	"github.com/trackline/jobsonar/internal/domain"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary for companies, job positions,
// scraping sessions, alerts, and notifications. WithTx runs a function
// against a transactional view; reconciliation uses it to commit once
// per company run.
type Store interface {
	UpsertCompany(ctx context.Context, c *domain.Company) error
	CompanyByName(ctx context.Context, name string) (*domain.Company, error)
	ActiveCompanies(ctx context.Context) ([]*domain.Company, error)

	InsertJob(ctx context.Context, job *domain.JobPosition) error
	UpdateJob(ctx context.Context, job *domain.JobPosition) error
	JobByExternalID(ctx context.Context, companyID int64, externalID string) (*domain.JobPosition, error)
	JobsByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*domain.JobPosition, error)
	JobsByIDs(ctx context.Context, ids []int64) ([]*domain.JobPosition, error)
	ActiveJobsSince(ctx context.Context, since time.Time) ([]*domain.JobPosition, error)
	// DeactivateMissing flips is_active off for every active job of the
	// company whose external ID is not in seen, returning how many
	// rows were deactivated.
	DeactivateMissing(ctx context.Context, companyID int64, seen map[string]bool) (int, error)

	CreateSession(ctx context.Context, s *domain.ScrapingSession) error
	UpdateSession(ctx context.Context, s *domain.ScrapingSession) error

	ActiveAlerts(ctx context.Context) ([]*domain.Alert, error)
	AlertByID(ctx context.Context, id int64) (*domain.Alert, error)
	UpdateAlertTrigger(ctx context.Context, alertID int64, at time.Time) error
	InsertNotification(ctx context.Context, n *domain.AlertNotification) error
	// NotifiedPairs returns every (alert_id, job_id) pair already
	// covered by a historical notification for the given alerts.
	NotifiedPairs(ctx context.Context, alertIDs []int64) (map[[2]int64]bool, error)

	WithTx(ctx context.Context, fn func(Store) error) error
}
