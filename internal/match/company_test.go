package match

import (
	"testing"

	"github.com/trackline/jobsonar/internal/domain"
)

func TestNormalizeCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Inc.", "acme"},
		{"Acme, Ltd", "acme"},
		{"ACME Corp", "acme"},
		{"Wix.com Ltd.", "wix com"},
		{"  Check  Point  ", "check point"},
		{"Inc", "inc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCompanyName(tt.in); got != tt.want {
			t.Errorf("NormalizeCompanyName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindMatch(t *testing.T) {
	companies := []*domain.Company{
		{ID: 1, Name: "Acme", IsActive: true},
		{ID: 2, Name: "Globex Corporation", IsActive: true},
		{ID: 3, Name: "Initech", IsActive: false},
		{ID: 4, Name: "Meta", IsActive: true},
	}
	m := NewCompanyMatcher()

	t.Run("exact after normalization", func(t *testing.T) {
		c, score := m.FindMatch("Acme Inc.", companies)
		if c == nil || c.ID != 1 {
			t.Fatalf("got %v, want Acme", c)
		}
		if score != 1.0 {
			t.Errorf("score = %v, want 1.0", score)
		}
	})

	t.Run("alias table hit", func(t *testing.T) {
		c, score := m.FindMatch("Facebook", companies)
		if c == nil || c.ID != 4 {
			t.Fatalf("got %v, want Meta", c)
		}
		if score != 1.0 {
			t.Errorf("score = %v, want 1.0", score)
		}
	})

	t.Run("legal suffix stripped on stored name", func(t *testing.T) {
		c, _ := m.FindMatch("Globex", companies)
		if c == nil || c.ID != 2 {
			t.Fatalf("got %v, want Globex Corporation", c)
		}
	})

	t.Run("inactive companies skipped", func(t *testing.T) {
		c, _ := m.FindMatch("Initech", companies)
		if c != nil {
			t.Fatalf("inactive company matched: %v", c)
		}
	})

	t.Run("below threshold returns score only", func(t *testing.T) {
		c, score := m.FindMatch("Completely Different Name", companies)
		if c != nil {
			t.Fatalf("unexpected match %v", c)
		}
		if score >= 0.85 {
			t.Errorf("score = %v, want < 0.85", score)
		}
	})
}
