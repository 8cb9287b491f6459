package parser

import (
	"testing"
	"time"
)

func TestNewFieldMapParserValidation(t *testing.T) {
	tests := []struct {
		name    string
		mapping map[string]any
	}{
		{"empty mapping", map[string]any{}},
		{"unknown target", map[string]any{"salary": "pay"}},
		{"empty source", map[string]any{"title": ""}},
		{"bad fallback entry", map[string]any{"title": []any{"name", 5}}},
		{"spec without field", map[string]any{"title": map[string]any{"transform": "strip_html"}}},
		{"unknown transform", map[string]any{"title": map[string]any{"field": "name", "transform": "uppercase"}}},
		{"contains_keywords without keywords", map[string]any{"is_remote": map[string]any{"field": "loc", "transform": "contains_keywords"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFieldMapParser(tt.mapping, ""); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFieldMapParse(t *testing.T) {
	mapping := map[string]any{
		"external_id": "jobId",
		"title":       []any{"jobTitle", "name"},
		"description": map[string]any{"field": "descHtml", "transform": "strip_html"},
		"location":    map[string]any{"field": "offices", "transform": "extract_first"},
		"job_url":     map[string]any{"field": "slug", "transform": "prepend_url", "prefix": "https://jobs.acme.example"},
		"department":  map[string]any{"field": "teams", "transform": "join_list", "separator": " / "},
		"posted_date": map[string]any{"field": "publishedAt", "transform": "parse_date"},
		"is_remote":   map[string]any{"field": "workplace", "transform": "contains_keywords", "keywords": []any{"remote", "hybrid"}},
	}
	p, err := NewFieldMapParser(mapping, "")
	if err != nil {
		t.Fatalf("NewFieldMapParser: %v", err)
	}
	raw := map[string]any{
		"jobId":       float64(99),
		"name":        "Platform Engineer",
		"descHtml":    "<p>Own the <b>platform</b>.</p>",
		"offices":     []any{"Tel Aviv", "Haifa"},
		"slug":        "/openings/99",
		"teams":       []any{"Infra", "Platform"},
		"publishedAt": "2026-07-15",
		"workplace":   "Hybrid (Tel Aviv)",
	}
	job := p.Parse(raw)
	if job.ExternalID != "99" {
		t.Errorf("ExternalID = %q", job.ExternalID)
	}
	if job.Title != "Platform Engineer" {
		t.Errorf("fallback title = %q", job.Title)
	}
	if job.Description != "Own the platform." {
		t.Errorf("Description = %q", job.Description)
	}
	if job.Location != "Tel Aviv" {
		t.Errorf("Location = %q", job.Location)
	}
	if job.JobURL != "https://jobs.acme.example/openings/99" {
		t.Errorf("JobURL = %q", job.JobURL)
	}
	if job.Department != "Infra / Platform" {
		t.Errorf("Department = %q", job.Department)
	}
	if job.PostedDate == nil || !job.PostedDate.Equal(time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PostedDate = %v", job.PostedDate)
	}
	if !job.IsRemote {
		t.Error("IsRemote should be true for hybrid keyword")
	}
}

func TestFieldMapParseMissingSource(t *testing.T) {
	p, err := NewFieldMapParser(map[string]any{"title": "jobTitle"}, "")
	if err != nil {
		t.Fatal(err)
	}
	job := p.Parse(map[string]any{"other": "x"})
	if !job.IsZero() {
		t.Errorf("expected zero job, got %+v", job)
	}
}

func TestFieldMapNestedPath(t *testing.T) {
	p, err := NewFieldMapParser(map[string]any{"location": "office.city"}, "")
	if err != nil {
		t.Fatal(err)
	}
	job := p.Parse(map[string]any{"office": map[string]any{"city": "Haifa"}})
	if job.Location != "Haifa" {
		t.Errorf("Location = %q", job.Location)
	}
}

func TestFieldMapPrependURLKeepsAbsolute(t *testing.T) {
	p, err := NewFieldMapParser(map[string]any{
		"job_url": map[string]any{"field": "url", "transform": "prepend_url"},
	}, "https://acme.example")
	if err != nil {
		t.Fatal(err)
	}
	job := p.Parse(map[string]any{"url": "https://other.example/j/1"})
	if job.JobURL != "https://other.example/j/1" {
		t.Errorf("absolute URL rewritten: %q", job.JobURL)
	}
	job = p.Parse(map[string]any{"url": "/j/1"})
	if job.JobURL != "https://acme.example/j/1" {
		t.Errorf("JobURL = %q", job.JobURL)
	}
}

func TestExtractEmbeddedJSON(t *testing.T) {
	page := `<html><script>
		var config = {};
		var jobList = [{"title": "Dev [Senior]", "url": "/j/1"}, {"title": "QA", "url": "/j/2"}];
	</script></html>`
	records, err := ExtractEmbeddedJSON(page, "jobList")
	if err != nil {
		t.Fatalf("ExtractEmbeddedJSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["title"] != "Dev [Senior]" {
		t.Errorf("brackets inside strings mishandled: %v", records[0])
	}
	if _, err := ExtractEmbeddedJSON(page, "missingVar"); err == nil {
		t.Error("expected error for missing variable")
	}
}

func TestParseRSSItem(t *testing.T) {
	job := ParseRSSItem(RSSItem{
		Title:       "Backend Engineer - Tel Aviv",
		Link:        "https://acme.example/jobs/backend",
		GUID:        "acme-backend-1",
		Description: "<p>Go services</p>",
		PubDate:     "Mon, 02 Jun 2026 09:00:00 +0000",
		Category:    "Engineering",
	})
	if job.ExternalID != "acme-backend-1" {
		t.Errorf("ExternalID = %q", job.ExternalID)
	}
	if job.Title != "Backend Engineer" || job.Location != "Tel Aviv" {
		t.Errorf("title/location split failed: %q / %q", job.Title, job.Location)
	}
	if job.PostedDate == nil {
		t.Error("PubDate not parsed")
	}
	if job.Description != "Go services" {
		t.Errorf("Description = %q", job.Description)
	}

	// GUID falls back to the link
	job = ParseRSSItem(RSSItem{Title: "QA", Link: "https://acme.example/jobs/qa"})
	if job.ExternalID != "https://acme.example/jobs/qa" {
		t.Errorf("ExternalID = %q", job.ExternalID)
	}
}
