package match

import (
	"strings"

	"github.com/trackline/jobsonar/internal/domain"
)

// legalSuffixes are dropped during company name normalization so
// "Acme Inc." and "Acme" compare equal.
var legalSuffixes = []string{
	"inc", "ltd", "llc", "corp", "corporation", "co",
	"plc", "sa", "gmbh", "limited", "technologies", "labs",
}

// defaultAliases maps canonical company names to the spellings
// aggregator sources are known to use for them. Keys and values are
// compared after normalization.
var defaultAliases = map[string][]string{
	"meta":      {"facebook", "meta platforms"},
	"alphabet":  {"google"},
	"microsoft": {"msft", "microsoft israel"},
}

// NormalizeCompanyName lowercases, strips legal-entity suffixes and
// punctuation, and collapses whitespace.
func NormalizeCompanyName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range lower {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 0x80 {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	words := strings.Fields(b.String())
	for len(words) > 1 {
		last := words[len(words)-1]
		if !isLegalSuffix(last) {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func isLegalSuffix(w string) bool {
	for _, s := range legalSuffixes {
		if w == s {
			return true
		}
	}
	return false
}

// CompanyMatcher resolves free-text company names reported by
// aggregator sources to canonical companies.
type CompanyMatcher struct {
	// normalized alias -> normalized canonical name
	aliases   map[string]string
	threshold float64
}

// NewCompanyMatcher builds a matcher with the default alias table and a
// 0.85 acceptance threshold.
func NewCompanyMatcher() *CompanyMatcher {
	m := &CompanyMatcher{
		aliases:   make(map[string]string),
		threshold: 0.85,
	}
	for canonical, names := range defaultAliases {
		for _, alias := range names {
			m.AddAlias(canonical, alias)
		}
	}
	return m
}

// AddAlias registers an alias for a canonical company name.
func (m *CompanyMatcher) AddAlias(canonical, alias string) {
	m.aliases[NormalizeCompanyName(alias)] = NormalizeCompanyName(canonical)
}

// FindMatch resolves an external name against the given companies.
// An alias-table hit returns confidence 1.0. Otherwise the best
// sequence-similarity score against each active company's normalized
// name is returned, with a nil company when it falls below the
// threshold so callers can still see how close the nearest miss was.
func (m *CompanyMatcher) FindMatch(externalName string, companies []*domain.Company) (*domain.Company, float64) {
	normalized := NormalizeCompanyName(externalName)
	if normalized == "" {
		return nil, 0
	}
	target := normalized
	if canonical, ok := m.aliases[normalized]; ok {
		target = canonical
		for _, c := range companies {
			if c.IsActive && NormalizeCompanyName(c.Name) == canonical {
				return c, 1.0
			}
		}
	}

	var best *domain.Company
	var bestScore float64
	for _, c := range companies {
		if !c.IsActive {
			continue
		}
		candidate := NormalizeCompanyName(c.Name)
		if candidate == target {
			return c, 1.0
		}
		if score := Ratio(target, candidate); score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore >= m.threshold {
		return best, bestScore
	}
	return nil, bestScore
}
