package domain

import "time"

// Job represents a normalized job posting from any source, before persistence.
// Every parser produces this shape regardless of the upstream ATS format.
type Job struct {
	ExternalID     string     `json:"external_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Location       string     `json:"location,omitempty"`
	JobURL         string     `json:"job_url"`
	Department     string     `json:"department,omitempty"`
	EmploymentType string     `json:"employment_type,omitempty"`
	SeniorityLevel string     `json:"seniority_level,omitempty"`
	PostedDate     *time.Time `json:"posted_date,omitempty"`
	IsRemote       bool       `json:"is_remote"`
	RemoteType     string     `json:"remote_type,omitempty"` // remote, hybrid, onsite
}

// IsZero reports whether the record carries no data. Parsers return a zero
// Job to signal "skip this record".
func (j Job) IsZero() bool {
	return j.ExternalID == "" && j.Title == "" && j.JobURL == ""
}

// DuplicateMeta records the outcome of a duplicate check performed when a
// job row was inserted. It is only set for medium-confidence overlaps.
type DuplicateMeta struct {
	Score         float64 `json:"score"`
	DuplicateOfID int64   `json:"duplicate_of_id,omitempty"`
	NeedsReview   bool    `json:"needs_review"`
}

// JobPosition is a persisted job posting owned by exactly one company.
// The (ExternalID, CompanyID) pair is unique.
type JobPosition struct {
	ID             int64      `json:"id"`
	CompanyID      int64      `json:"company_id"`
	ExternalID     string     `json:"external_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Location       string     `json:"location,omitempty"`
	JobURL         string     `json:"job_url"`
	Department     string     `json:"department,omitempty"`
	EmploymentType string     `json:"employment_type,omitempty"`
	RemoteType     string     `json:"remote_type,omitempty"`
	SeniorityLevel string     `json:"seniority_level,omitempty"`
	PostedDate     *time.Time `json:"posted_date,omitempty"`

	// Lifecycle tracking. IsActive flips to false when a completed scrape
	// no longer contains the external ID, and back to true on reobservation.
	IsActive    bool      `json:"is_active"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	ScrapedAt   time.Time `json:"scraped_at"`
	CreatedAt   time.Time `json:"created_at"`

	Duplicate *DuplicateMeta `json:"duplicate_metadata,omitempty"`
}

// Company is a canonical scraping target. ScrapingEnabled controls whether
// the orchestrator visits its career page; IsActive marks the company record
// itself as valid. The two are deliberately separate flags.
type Company struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Website         string `json:"website,omitempty"`
	CareersURL      string `json:"careers_url,omitempty"`
	Industry        string `json:"industry,omitempty"`
	IsActive        bool   `json:"is_active"`
	ScrapingEnabled bool   `json:"scraping_enabled"`
}

// Session states; terminal states are completed and failed.
const (
	SessionPending   = "pending"
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)

// SessionError is one structured error entry on a scraping session.
type SessionError struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ScrapingSession records a single orchestrator run for one company.
type ScrapingSession struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	JobsFound            int `json:"jobs_found"`
	JobsNew              int `json:"jobs_new"`
	JobsUpdated          int `json:"jobs_updated"`
	JobsRemoved          int `json:"jobs_removed"`
	JobsFilteredLocation int `json:"jobs_filtered_location"`

	Errors  []SessionError `json:"errors,omitempty"`
	Metrics map[string]any `json:"performance_metrics,omitempty"`
}

// AddError appends a structured error entry to the session.
func (s *ScrapingSession) AddError(errType, message string) {
	s.Errors = append(s.Errors, SessionError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// Duration returns the session duration, or zero while still running.
func (s *ScrapingSession) Duration() time.Duration {
	if s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}
