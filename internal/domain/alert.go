package domain

import "time"

// Alert is a user-owned filter predicate over job positions. All non-empty
// criteria lists must match (AND across categories, OR within a category).
type Alert struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`

	CompanyIDs       []int64  `json:"company_ids,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	ExcludedKeywords []string `json:"excluded_keywords,omitempty"`
	Locations        []string `json:"locations,omitempty"`
	Departments      []string `json:"departments,omitempty"`
	EmploymentTypes  []string `json:"employment_types,omitempty"`
	RemoteTypes      []string `json:"remote_types,omitempty"`
	SeniorityLevels  []string `json:"seniority_levels,omitempty"`

	NotificationMethod string `json:"notification_method,omitempty"`

	// Mutated only by the matching engine when it produces a notification.
	TriggerCount    int        `json:"trigger_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
}

// AlertNotification is a batch record: one alert accumulates many matched
// jobs into a single notification. A given (alert, job) pair never appears
// in more than one notification.
type AlertNotification struct {
	ID             int64     `json:"id"`
	AlertID        int64     `json:"alert_id"`
	UserID         int64     `json:"user_id"`
	JobPositionIDs []int64   `json:"job_position_ids"`
	JobCount       int       `json:"job_count"`
	DeliveryMethod string    `json:"delivery_method"`
	DeliveryStatus string    `json:"delivery_status"`
	CreatedAt      time.Time `json:"created_at"`
}
