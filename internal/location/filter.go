package location

import (
	"fmt"
	"regexp"
	"strings"
)

// israelPatterns match locations inside Israel. Word boundaries keep
// short tokens like "IL" from matching inside unrelated words.
var israelPatterns = []string{
	`\bisrael\b`,
	`\bil\b`,
	`\btel\s*aviv\b`,
	`\btel-aviv\b`,
	`\bjerusalem\b`,
	`\bhaifa\b`,
	`\bherzliya\b`,
	`\bherzelia\b`,
	`\braanana\b`,
	`\bra'anana\b`,
	`\bnetanya\b`,
	`\bpetah\s*tikva\b`,
	`\bpetach\s*tikva\b`,
	`\bramat\s*gan\b`,
	`\brehovot\b`,
	`\bbeer\s*sheva\b`,
	`\bbe'er\s*sheva\b`,
	`\bbeersheba\b`,
	`\bkfar\s*saba\b`,
	`\byokneam\b`,
	`\bcaesarea\b`,
	`\brishon\s*lezion\b`,
	`\bholon\b`,
	`\bbnei\s*brak\b`,
	`\bor\s*yehuda\b`,
	`\bhod\s*hasharon\b`,
	`\brosh\s*haayin\b`,
}

// Filter decides whether a job location passes the geographic allow
// list. A nil or missing location is rejected while the filter is
// enabled: records without a location cannot be confirmed in scope.
type Filter struct {
	enabled  bool
	patterns []*regexp.Regexp
}

// NewFilter builds a filter from countries and free-form keywords.
// Countries currently recognized: Israel. Extra keywords are compiled
// as case-insensitive word-boundary patterns.
func NewFilter(enabled bool, countries, keywords []string) (*Filter, error) {
	f := &Filter{enabled: enabled}
	if !enabled {
		return f, nil
	}
	for _, country := range countries {
		switch strings.ToLower(strings.TrimSpace(country)) {
		case "israel", "il":
			for _, p := range israelPatterns {
				f.patterns = append(f.patterns, regexp.MustCompile(`(?i)`+p))
			}
		default:
			p, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.ToLower(country)) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("compile country pattern %q: %w", country, err)
			}
			f.patterns = append(f.patterns, p)
		}
	}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		p, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compile keyword pattern %q: %w", kw, err)
		}
		f.patterns = append(f.patterns, p)
	}
	if len(f.patterns) == 0 {
		return nil, fmt.Errorf("location filter enabled but no countries or keywords configured")
	}
	return f, nil
}

// Allowed reports whether a location passes the filter. When disabled,
// everything passes.
func (f *Filter) Allowed(location string) bool {
	if !f.enabled {
		return true
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return false
	}
	for _, p := range f.patterns {
		if p.MatchString(location) {
			return true
		}
	}
	return false
}

// Enabled reports whether filtering is active.
func (f *Filter) Enabled() bool {
	return f.enabled
}
