package alert

import (
	"strings"

	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/match"
)

// keywordPredicate decides whether any alert keyword matches a job
// title. The default is lexical word-set containment; the engine can
// widen it with semantic similarity.
type keywordPredicate func(keywords []string, title string) bool

// MatchesPosition evaluates an alert's criteria against one job. Every
// non-empty criterion must pass; within a criterion, any listed value
// may match.
func MatchesPosition(a *domain.Alert, job *domain.JobPosition) bool {
	return matchesPosition(a, job, match.AnyKeywordMatches)
}

func matchesPosition(a *domain.Alert, job *domain.JobPosition, keywords keywordPredicate) bool {
	if len(a.CompanyIDs) > 0 && !containsInt64(a.CompanyIDs, job.CompanyID) {
		return false
	}
	if len(a.Keywords) > 0 && !keywords(a.Keywords, job.Title) {
		return false
	}
	if match.AnyKeywordMatches(a.ExcludedKeywords, job.Title) {
		return false
	}
	if len(a.Locations) > 0 && !anySubstring(a.Locations, job.Location) {
		return false
	}
	if len(a.Departments) > 0 && !anySubstring(a.Departments, job.Department) {
		return false
	}
	if len(a.EmploymentTypes) > 0 && !containsFold(a.EmploymentTypes, job.EmploymentType) {
		return false
	}
	if len(a.RemoteTypes) > 0 && !containsFold(a.RemoteTypes, job.RemoteType) {
		return false
	}
	if len(a.SeniorityLevels) > 0 && !containsFold(a.SeniorityLevels, job.SeniorityLevel) {
		return false
	}
	return true
}

func containsInt64(list []int64, v int64) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// anySubstring reports whether any wanted value appears inside the
// field, case-insensitively.
func anySubstring(wanted []string, field string) bool {
	if field == "" {
		return false
	}
	lower := strings.ToLower(field)
	for _, w := range wanted {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// containsFold is an exact-value membership check, case-insensitive.
func containsFold(wanted []string, value string) bool {
	for _, w := range wanted {
		if strings.EqualFold(w, value) {
			return true
		}
	}
	return false
}
