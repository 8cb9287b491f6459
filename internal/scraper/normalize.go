package scraper

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/parser"
)

const (
	minTitleLen = 3
	maxTitleLen = 200
)

// ValidateJob enforces the minimum a record needs before it can be
// persisted: a title of sane length and a job URL.
func ValidateJob(job *domain.Job) error {
	title := strings.TrimSpace(job.Title)
	if title == "" {
		return fmt.Errorf("missing title")
	}
	if n := utf8.RuneCountInString(title); n < minTitleLen || n > maxTitleLen {
		return fmt.Errorf("title length %d outside %d-%d", n, minTitleLen, maxTitleLen)
	}
	if strings.TrimSpace(job.JobURL) == "" {
		return fmt.Errorf("missing job_url")
	}
	return nil
}

// NormalizeJob trims whitespace, fills derived fields, and synthesizes
// an external ID when the source provided none.
func NormalizeJob(job *domain.Job, companyName, baseURL string) {
	job.Title = strings.TrimSpace(job.Title)
	job.Location = strings.TrimSpace(job.Location)
	job.Department = strings.TrimSpace(job.Department)
	job.EmploymentType = strings.TrimSpace(job.EmploymentType)
	job.JobURL = MakeAbsoluteURL(baseURL, strings.TrimSpace(job.JobURL))

	if job.RemoteType == "" {
		if job.IsRemote {
			job.RemoteType = "remote"
		} else {
			job.RemoteType = "onsite"
		}
	}
	if job.SeniorityLevel == "" {
		job.SeniorityLevel = InferSeniority(job.Title)
	}
	if job.ExternalID == "" {
		job.ExternalID = parser.SynthesizeExternalID(companyName, job.Title, job.JobURL)
	}
}

// seniorityRules map title markers to levels, checked in order so the
// most senior marker present wins.
var seniorityRules = []struct {
	level   string
	markers []string
}{
	{"executive", []string{"vp ", "vp,", "vice president", "chief ", "cto", "ceo", "coo", "cfo", "president"}},
	{"director", []string{"director", "head of"}},
	{"manager", []string{"manager", "team lead", "group lead"}},
	{"principal", []string{"principal", "staff", "architect"}},
	{"senior", []string{"senior", "sr.", "sr "}},
	{"junior", []string{"junior", "jr.", "jr ", "entry level", "entry-level"}},
	{"intern", []string{"intern ", "internship"}},
}

// InferSeniority guesses a seniority level from the job title. Empty
// when no marker is present; mid-level titles usually carry none.
func InferSeniority(title string) string {
	lower := " " + strings.ToLower(title) + " "
	for _, rule := range seniorityRules {
		for _, marker := range rule.markers {
			if strings.Contains(lower, marker) {
				return rule.level
			}
		}
	}
	return ""
}

// MakeAbsoluteURL resolves a possibly relative job link against the
// company base URL with standard URL-join semantics.
func MakeAbsoluteURL(base, link string) string {
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return baseURL.ResolveReference(ref).String()
}
