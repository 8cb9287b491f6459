package parser

import (
	"encoding/json"
	"testing"
	"time"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestParseGreenhouse(t *testing.T) {
	raw := decode(t, `{
		"id": 4567,
		"title": "  Backend Engineer  ",
		"absolute_url": "https://boards.greenhouse.io/acme/jobs/4567",
		"location": {"name": "Tel Aviv, Israel"},
		"content": "&lt;p&gt;Build &lt;b&gt;services&lt;/b&gt;.&lt;/p&gt;",
		"updated_at": "2026-08-01T10:00:00Z",
		"departments": [{"name": "Engineering"}]
	}`)
	job := ParseGreenhouse(raw)
	if job.ExternalID != "4567" {
		t.Errorf("ExternalID = %q", job.ExternalID)
	}
	if job.Title != "Backend Engineer" {
		t.Errorf("Title = %q", job.Title)
	}
	if job.Location != "Tel Aviv, Israel" {
		t.Errorf("Location = %q", job.Location)
	}
	if job.Department != "Engineering" {
		t.Errorf("Department = %q", job.Department)
	}
	if job.PostedDate == nil || !job.PostedDate.Equal(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PostedDate = %v", job.PostedDate)
	}
	if job.IsZero() {
		t.Error("job should not be zero")
	}
}

func TestParseGreenhouseMissingFields(t *testing.T) {
	job := ParseGreenhouse(map[string]any{})
	if !job.IsZero() {
		t.Errorf("expected zero job, got %+v", job)
	}
}

func TestParseComeet(t *testing.T) {
	raw := decode(t, `{
		"uid": "A1.B2C",
		"name": "QA Engineer",
		"department": "R&D",
		"location": {"name": "Herzliya, Israel"},
		"url_active_page": "https://www.comeet.com/jobs/acme/A1.B2C"
	}`)
	job := ParseComeet(raw)
	if job.ExternalID != "A1.B2C" || job.Title != "QA Engineer" {
		t.Errorf("got %+v", job)
	}
	if job.Location != "Herzliya, Israel" {
		t.Errorf("Location = %q", job.Location)
	}
}

func TestParseWorkday(t *testing.T) {
	raw := decode(t, `{
		"title": "Data Engineer",
		"externalPath": "/job/Tel-Aviv/Data-Engineer_R12345",
		"locationsText": "Tel Aviv, Israel",
		"postedOn": "Posted 3 Days Ago",
		"bulletFields": ["R12345"],
		"timeType": "Full time"
	}`)
	job := ParseWorkday(raw)
	if job.ExternalID != "R12345" {
		t.Errorf("ExternalID = %q", job.ExternalID)
	}
	if job.JobURL != "/job/Tel-Aviv/Data-Engineer_R12345" {
		t.Errorf("JobURL = %q", job.JobURL)
	}
	if job.PostedDate == nil {
		t.Fatal("PostedDate not parsed from relative date")
	}
	want := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -3)
	if !job.PostedDate.Equal(want) {
		t.Errorf("PostedDate = %v, want %v", job.PostedDate, want)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		sample map[string]any
		want   string
	}{
		{map[string]any{"absolute_url": "x"}, "greenhouse"},
		{map[string]any{"url_active_page": "x"}, "comeet"},
		{map[string]any{"apply_url": "x"}, "jibe"},
		{map[string]any{"externalPath": "x"}, "workday"},
		{map[string]any{"positionUrl": "x"}, "eightfold"},
		{map[string]any{"anything": "x"}, "greenhouse"},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.sample); got != tt.want {
			t.Errorf("DetectFormat(%v) = %q, want %q", tt.sample, got, tt.want)
		}
	}
}

func TestForFormatUnknown(t *testing.T) {
	if _, err := ForFormat("lever"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   any
		want *time.Time
	}{
		{"2026-08-01", timePtr(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))},
		{"2026-08-01T10:30:00Z", timePtr(time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC))},
		{float64(1754042400), timePtr(time.Unix(1754042400, 0).UTC())},
		{float64(1754042400000), timePtr(time.UnixMilli(1754042400000).UTC())},
		{"not a date", nil},
		{"", nil},
		{nil, nil},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("ParseDate(%v) = %v, want nil", tt.in, got)
		case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
			t.Errorf("ParseDate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSynthesizeExternalID(t *testing.T) {
	if got := SynthesizeExternalID("Acme", "Backend Engineer", "https://acme.example/jobs/4567"); got != "Acme_4567" {
		t.Errorf("got %q, want Acme_4567", got)
	}
	// trailing slash ignored
	if got := SynthesizeExternalID("Acme", "Backend Engineer", "https://acme.example/jobs/4567/"); got != "Acme_4567" {
		t.Errorf("got %q, want Acme_4567", got)
	}
	// no URL falls back to a title hash
	got := SynthesizeExternalID("Acme", "Backend Engineer", "")
	if len(got) != 32 {
		t.Errorf("hash fallback length = %d, want 32", len(got))
	}
	// deterministic
	if again := SynthesizeExternalID("Acme", "Backend Engineer", ""); again != got {
		t.Error("hash fallback should be deterministic")
	}
	// long IDs are capped
	long := SynthesizeExternalID("Acme", "x", "https://x.example/"+longString(100))
	if len(long) != 64 {
		t.Errorf("capped length = %d, want 64", len(long))
	}
}

func longString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
