package alert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/match"
	"github.com/trackline/jobsonar/internal/store"
)

// AlertMatch groups the jobs one alert matched in a single engine run.
type AlertMatch struct {
	Alert *domain.Alert
	Jobs  []*domain.JobPosition
}

// Engine matches jobs to user alerts and records at-most-once
// notifications for each (alert, job) pair.
type Engine struct {
	store store.Store
	// Trailing window for matching a new alert against existing jobs
	RetroactiveWindow time.Duration
	// Optional semantic widening of keyword matching
	Semantic *SemanticMatcher
}

func NewEngine(st store.Store) *Engine {
	return &Engine{
		store:             st,
		RetroactiveWindow: 30 * 24 * time.Hour,
	}
}

// MatchJobsToAlerts evaluates every (alert, job) pair and returns the
// matches grouped by user. Pairs already covered by any historical
// notification are excluded. The notified-pair set is loaded in one
// batch up front; evaluating pairs against per-pair queries would be an
// N+1 explosion across alerts times jobs.
func (e *Engine) MatchJobsToAlerts(ctx context.Context, jobs []*domain.JobPosition, alerts []*domain.Alert) (map[int64][]*AlertMatch, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if alerts == nil {
		var err error
		alerts, err = e.store.ActiveAlerts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load alerts: %w", err)
		}
	}
	if len(alerts) == 0 {
		return nil, nil
	}

	alertIDs := make([]int64, 0, len(alerts))
	for _, a := range alerts {
		alertIDs = append(alertIDs, a.ID)
	}
	notified, err := e.store.NotifiedPairs(ctx, alertIDs)
	if err != nil {
		return nil, fmt.Errorf("load notified pairs: %w", err)
	}

	keywords := e.keywordPredicate(ctx)
	byUser := make(map[int64][]*AlertMatch)
	for _, a := range alerts {
		if !a.IsActive {
			continue
		}
		var matched []*domain.JobPosition
		for _, job := range jobs {
			if notified[[2]int64{a.ID, job.ID}] {
				continue
			}
			if matchesPosition(a, job, keywords) {
				matched = append(matched, job)
			}
		}
		if len(matched) > 0 {
			byUser[a.UserID] = append(byUser[a.UserID], &AlertMatch{Alert: a, Jobs: matched})
		}
	}
	return byUser, nil
}

// keywordPredicate builds the keyword check for one engine run:
// lexical word-set containment, widened by the semantic matcher when
// one is configured. Excluded keywords stay strictly lexical.
func (e *Engine) keywordPredicate(ctx context.Context) keywordPredicate {
	if e.Semantic == nil {
		return match.AnyKeywordMatches
	}
	return func(keywords []string, title string) bool {
		return match.AnyKeywordMatches(keywords, title) || e.Semantic.Matches(ctx, keywords, title)
	}
}

// CreateNotifications persists one notification per matched alert and
// bumps the alert trigger counters.
func (e *Engine) CreateNotifications(ctx context.Context, matches map[int64][]*AlertMatch) ([]*domain.AlertNotification, error) {
	var created []*domain.AlertNotification
	now := time.Now().UTC()
	for userID, alertMatches := range matches {
		for _, am := range alertMatches {
			jobIDs := make([]int64, 0, len(am.Jobs))
			for _, job := range am.Jobs {
				jobIDs = append(jobIDs, job.ID)
			}
			n := &domain.AlertNotification{
				AlertID:        am.Alert.ID,
				UserID:         userID,
				JobPositionIDs: jobIDs,
				JobCount:       len(jobIDs),
				DeliveryMethod: am.Alert.NotificationMethod,
				DeliveryStatus: "pending",
			}
			if err := e.store.InsertNotification(ctx, n); err != nil {
				return created, fmt.Errorf("insert notification for alert %d: %w", am.Alert.ID, err)
			}
			if err := e.store.UpdateAlertTrigger(ctx, am.Alert.ID, now); err != nil {
				return created, fmt.Errorf("update alert %d trigger: %w", am.Alert.ID, err)
			}
			created = append(created, n)
		}
	}
	return created, nil
}

// ProcessNewJobs is the matcher worker entry point: match freshly
// scraped jobs against all active alerts and persist notifications.
func (e *Engine) ProcessNewJobs(ctx context.Context, jobIDs []int64) ([]*domain.AlertNotification, error) {
	jobs, err := e.store.JobsByIDs(ctx, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	active := jobs[:0]
	for _, job := range jobs {
		if job.IsActive {
			active = append(active, job)
		}
	}
	matches, err := e.MatchJobsToAlerts(ctx, active, nil)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	notifications, err := e.CreateNotifications(ctx, matches)
	if err != nil {
		return notifications, err
	}
	log.Printf("[Matcher] created %d notifications for %d jobs", len(notifications), len(active))
	return notifications, nil
}

// ProcessAlertAgainstExistingJobs matches one newly created or updated
// alert against the trailing window of active jobs, producing a single
// retroactive notification so the user immediately sees jobs posted
// before the alert existed.
func (e *Engine) ProcessAlertAgainstExistingJobs(ctx context.Context, alertID int64) (*domain.AlertNotification, error) {
	a, err := e.store.AlertByID(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("load alert %d: %w", alertID, err)
	}
	if !a.IsActive {
		return nil, nil
	}
	since := time.Now().UTC().Add(-e.RetroactiveWindow)
	jobs, err := e.store.ActiveJobsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load recent jobs: %w", err)
	}
	matches, err := e.MatchJobsToAlerts(ctx, jobs, []*domain.Alert{a})
	if err != nil {
		return nil, err
	}
	userMatches := matches[a.UserID]
	if len(userMatches) == 0 {
		return nil, nil
	}
	notifications, err := e.CreateNotifications(ctx, map[int64][]*AlertMatch{a.UserID: userMatches})
	if err != nil {
		return nil, err
	}
	return notifications[0], nil
}
