package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trackline/jobsonar/internal/domain"
)

// Memory is an in-process Store used in tests and single-shot runs
// without a database. Transactions are simulated: WithTx just runs the
// function against the same state, which is enough for code that only
// needs the call shape.
type Memory struct {
	mu sync.Mutex

	companies     map[int64]*domain.Company
	jobs          map[int64]*domain.JobPosition
	sessions      map[int64]*domain.ScrapingSession
	alerts        map[int64]*domain.Alert
	notifications map[int64]*domain.AlertNotification

	nextCompanyID      int64
	nextJobID          int64
	nextSessionID      int64
	nextAlertID        int64
	nextNotificationID int64
}

func NewMemory() *Memory {
	return &Memory{
		companies:     make(map[int64]*domain.Company),
		jobs:          make(map[int64]*domain.JobPosition),
		sessions:      make(map[int64]*domain.ScrapingSession),
		alerts:        make(map[int64]*domain.Alert),
		notifications: make(map[int64]*domain.AlertNotification),
	}
}

func (m *Memory) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *Memory) UpsertCompany(ctx context.Context, c *domain.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.companies {
		if existing.Name == c.Name {
			c.ID = existing.ID
			cp := *c
			m.companies[c.ID] = &cp
			return nil
		}
	}
	m.nextCompanyID++
	c.ID = m.nextCompanyID
	cp := *c
	m.companies[c.ID] = &cp
	return nil
}

func (m *Memory) CompanyByName(ctx context.Context, name string) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.companies {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ActiveCompanies(ctx context.Context) ([]*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Company
	for _, c := range m.companies {
		if c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) InsertJob(ctx context.Context, job *domain.JobPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextJobID++
	job.ID = m.nextJobID
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) UpdateJob(ctx context.Context, job *domain.JobPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) JobByExternalID(ctx context.Context, companyID int64, externalID string) (*domain.JobPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.CompanyID == companyID && job.ExternalID == externalID {
			cp := *job
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) JobsByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*domain.JobPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.JobPosition
	for _, job := range m.jobs {
		if job.CompanyID != companyID {
			continue
		}
		if activeOnly && !job.IsActive {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) JobsByIDs(ctx context.Context, ids []int64) ([]*domain.JobPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.JobPosition
	for _, id := range ids {
		if job, ok := m.jobs[id]; ok {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) ActiveJobsSince(ctx context.Context, since time.Time) ([]*domain.JobPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.JobPosition
	for _, job := range m.jobs {
		if job.IsActive && !job.FirstSeenAt.Before(since) {
			cp := *job
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeactivateMissing(ctx context.Context, companyID int64, seen map[string]bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, job := range m.jobs {
		if job.CompanyID == companyID && job.IsActive && !seen[job.ExternalID] {
			job.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateSession(ctx context.Context, s *domain.ScrapingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSessionID++
	s.ID = m.nextSessionID
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *Memory) UpdateSession(ctx context.Context, s *domain.ScrapingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

// Sessions returns every recorded session ordered by ID, for test
// assertions.
func (m *Memory) Sessions() []*domain.ScrapingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ScrapingSession
	for _, s := range m.sessions {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) PutAlert(a *domain.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		m.nextAlertID++
		a.ID = m.nextAlertID
	}
	cp := *a
	m.alerts[a.ID] = &cp
}

func (m *Memory) ActiveAlerts(ctx context.Context) ([]*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Alert
	for _, a := range m.alerts {
		if a.IsActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AlertByID(ctx context.Context, id int64) (*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) UpdateAlertTrigger(ctx context.Context, alertID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok {
		return ErrNotFound
	}
	a.TriggerCount++
	t := at
	a.LastTriggeredAt = &t
	return nil
}

func (m *Memory) InsertNotification(ctx context.Context, n *domain.AlertNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNotificationID++
	n.ID = m.nextNotificationID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	cp := *n
	cp.JobPositionIDs = append([]int64(nil), n.JobPositionIDs...)
	m.notifications[n.ID] = &cp
	return nil
}

func (m *Memory) NotifiedPairs(ctx context.Context, alertIDs []int64) (map[[2]int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[int64]bool, len(alertIDs))
	for _, id := range alertIDs {
		wanted[id] = true
	}
	pairs := make(map[[2]int64]bool)
	for _, n := range m.notifications {
		if !wanted[n.AlertID] {
			continue
		}
		for _, jobID := range n.JobPositionIDs {
			pairs[[2]int64{n.AlertID, jobID}] = true
		}
	}
	return pairs, nil
}

// Notifications returns every stored notification ordered by ID, for
// test assertions.
func (m *Memory) Notifications() []*domain.AlertNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AlertNotification
	for _, n := range m.notifications {
		cp := *n
		cp.JobPositionIDs = append([]int64(nil), n.JobPositionIDs...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ Store = (*Memory)(nil)
