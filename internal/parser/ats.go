package parser

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/trackline/jobsonar/internal/cleaner"
	"github.com/trackline/jobsonar/internal/domain"
)

var htmlCleaner = cleaner.NewStrictCleaner()

// ParseGreenhouse parses a Greenhouse job board record.
func ParseGreenhouse(raw map[string]any) domain.Job {
	job := domain.Job{
		ExternalID:  str(raw, "id"),
		Title:       strings.TrimSpace(str(raw, "title")),
		Location:    nestedStr(raw, "location.name"),
		JobURL:      str(raw, "absolute_url"),
		Description: htmlCleaner.CleanToText(str(raw, "content")),
		PostedDate:  ParseDate(firstNonNil(raw["first_published"], raw["updated_at"])),
	}
	if deps, ok := raw["departments"].([]any); ok && len(deps) > 0 {
		if dep, ok := deps[0].(map[string]any); ok {
			job.Department = str(dep, "name")
		}
	}
	return job
}

// ParseComeet parses a Comeet careers API record.
func ParseComeet(raw map[string]any) domain.Job {
	job := domain.Job{
		ExternalID:     str(raw, "uid", "id"),
		Title:          strings.TrimSpace(str(raw, "name", "title")),
		JobURL:         str(raw, "url_active_page", "url_comeet_hosted_page"),
		Department:     str(raw, "department"),
		EmploymentType: str(raw, "employment_type", "time_type"),
	}
	switch loc := raw["location"].(type) {
	case map[string]any:
		job.Location = str(loc, "name", "city")
	case string:
		job.Location = loc
	}
	if job.Location == "" {
		job.Location = str(raw, "location_name")
	}
	return job
}

// ParseJibe parses a Jibe/iCIMS careers API record.
func ParseJibe(raw map[string]any) domain.Job {
	data := raw
	if inner, ok := raw["data"].(map[string]any); ok {
		data = inner
	}
	return domain.Job{
		ExternalID:  str(data, "req_id", "requisition_id", "id", "slug"),
		Title:       strings.TrimSpace(str(data, "title")),
		Location:    str(data, "full_location", "location", "city"),
		JobURL:      str(data, "apply_url", "canonical_url"),
		Department:  str(data, "category", "department"),
		Description: htmlCleaner.CleanToText(str(data, "description")),
		PostedDate:  ParseDate(firstNonNil(data["posted_date"], data["create_date"])),
	}
}

// ParseEightfold parses an Eightfold careers API position record.
func ParseEightfold(raw map[string]any) domain.Job {
	job := domain.Job{
		ExternalID:  str(raw, "id", "display_job_id"),
		Title:       strings.TrimSpace(str(raw, "name", "title")),
		Location:    str(raw, "location"),
		JobURL:      str(raw, "canonicalPositionUrl", "positionUrl"),
		Department:  str(raw, "department", "business_unit"),
		Description: htmlCleaner.CleanToText(str(raw, "job_description")),
		PostedDate:  ParseDate(firstNonNil(raw["t_create"], raw["t_update"])),
	}
	if job.Location == "" {
		job.Location = firstListString(raw["locations"])
	}
	return job
}

// ParseWorkday parses a Workday CXS jobPostings record. The externalPath
// is site relative; the scraper resolves it against the company careers
// base URL.
func ParseWorkday(raw map[string]any) domain.Job {
	job := domain.Job{
		Title:          strings.TrimSpace(str(raw, "title")),
		Location:       str(raw, "locationsText"),
		JobURL:         str(raw, "externalPath"),
		EmploymentType: str(raw, "timeType"),
		PostedDate:     parseWorkdayPostedOn(str(raw, "postedOn")),
	}
	if bullets, ok := raw["bulletFields"].([]any); ok && len(bullets) > 0 {
		if s, ok := bullets[0].(string); ok {
			job.ExternalID = s
		}
	}
	if job.ExternalID == "" {
		job.ExternalID = job.JobURL
	}
	return job
}

var workdayDaysAgo = regexp.MustCompile(`(?i)posted\s+(\d+)\+?\s+days?\s+ago`)

// parseWorkdayPostedOn handles Workday's relative posting dates
// ("Posted Today", "Posted 3 Days Ago", "Posted 30+ Days Ago").
func parseWorkdayPostedOn(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	now := time.Now().UTC().Truncate(24 * time.Hour)
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "today"):
		return &now
	case strings.Contains(lower, "yesterday"):
		t := now.AddDate(0, 0, -1)
		return &t
	}
	if m := workdayDaysAgo.FindStringSubmatch(s); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			t := now.AddDate(0, 0, -days)
			return &t
		}
	}
	return ParseDate(s)
}

// ParseAshby parses an Ashby job board posting.
func ParseAshby(raw map[string]any) domain.Job {
	job := domain.Job{
		ExternalID:     str(raw, "id"),
		Title:          strings.TrimSpace(str(raw, "title")),
		Location:       str(raw, "locationName", "location"),
		JobURL:         str(raw, "jobUrl", "applyUrl"),
		Department:     str(raw, "departmentName", "teamName"),
		EmploymentType: str(raw, "employmentType"),
	}
	if v, ok := raw["isRemote"].(bool); ok {
		job.IsRemote = v
	}
	return job
}

// ParsePhenom parses a Phenom platform job record.
func ParsePhenom(raw map[string]any) domain.Job {
	return domain.Job{
		ExternalID:  str(raw, "jobId", "jobSeqNo", "id"),
		Title:       strings.TrimSpace(str(raw, "title", "name")),
		Location:    str(raw, "location", "cityStateCountry"),
		JobURL:      str(raw, "applyUrl", "jobUrl", "url"),
		Department:  str(raw, "category", "department"),
		Description: htmlCleaner.CleanToText(str(raw, "description")),
		PostedDate:  ParseDate(raw["postedDate"]),
	}
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// SynthesizeExternalID builds a stable external ID when the source
// provides none: the trailing path segment of the job URL when it looks
// like an identifier, otherwise a hash of company and title. IDs are
// capped at 64 characters.
func SynthesizeExternalID(companyName, title, jobURL string) string {
	if jobURL != "" {
		trimmed := strings.TrimRight(jobURL, "/")
		if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
			if tail := trimmed[idx+1:]; tail != "" {
				id := companyName + "_" + tail
				if len(id) > 64 {
					id = id[:64]
				}
				return id
			}
		}
	}
	sum := md5.Sum([]byte(companyName + "_" + title))
	return fmt.Sprintf("%x", sum)
}
