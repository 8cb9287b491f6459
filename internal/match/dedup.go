package match

import (
	"sort"
	"strings"

	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/location"
)

// Dedup confidence bands. At or above Same the caller treats the
// candidate as the same posting and skips the insert; between Review
// and Same it inserts but flags the row for manual review; below
// Candidate nothing is reported at all.
const (
	DefaultCandidateThreshold = 0.75
	DefaultReviewThreshold    = 0.85
	DefaultSameThreshold      = 0.95

	titleWeight    = 0.7
	locationWeight = 0.3
)

// Deduper scores a new job against a company's existing postings.
type Deduper struct {
	CandidateThreshold float64
	ReviewThreshold    float64
	SameThreshold      float64
}

func NewDeduper() *Deduper {
	return &Deduper{
		CandidateThreshold: DefaultCandidateThreshold,
		ReviewThreshold:    DefaultReviewThreshold,
		SameThreshold:      DefaultSameThreshold,
	}
}

// CheckForDuplicate returns the best-scoring existing posting for the
// same company, its blended score, and whether the pair sits in the
// ambiguous band that needs manual review. Candidates scoring below the
// candidate threshold are not returned at all. excludeID skips a
// specific posting, for re-checks of an already persisted row.
func (d *Deduper) CheckForDuplicate(existing []*domain.JobPosition, title, loc string, excludeID int64) (*domain.JobPosition, float64, bool) {
	var best *domain.JobPosition
	var bestScore float64
	for _, job := range existing {
		if excludeID != 0 && job.ID == excludeID {
			continue
		}
		score := d.Score(title, loc, job.Title, job.Location)
		if score > bestScore {
			best, bestScore = job, score
		}
	}
	if best == nil || bestScore < d.CandidateThreshold {
		return nil, bestScore, false
	}
	needsReview := bestScore >= d.ReviewThreshold && bestScore < d.SameThreshold
	return best, bestScore, needsReview
}

// IsSame reports whether a score means "same posting, do not insert".
func (d *Deduper) IsSame(score float64) bool {
	return score >= d.SameThreshold
}

// Score blends title similarity (0.7) with location similarity (0.3).
func (d *Deduper) Score(titleA, locA, titleB, locB string) float64 {
	return titleWeight*TitleSimilarity(titleA, titleB) + locationWeight*LocationSimilarity(locA, locB)
}

// TitleSimilarity compares normalized titles. Word order carries no
// signal for job titles ("Senior Software Engineer" vs "Software
// Engineer, Senior"), so the raw character ratio is blended with the
// ratio over sorted words and the higher of the two wins.
func TitleSimilarity(a, b string) float64 {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	if na == "" || nb == "" {
		if na == nb {
			return 1.0
		}
		return 0.0
	}
	raw := Ratio(na, nb)
	sorted := Ratio(sortWords(na), sortWords(nb))
	if sorted > raw {
		return sorted
	}
	return raw
}

func normalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' || r >= 0x80 {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func sortWords(s string) string {
	words := strings.Fields(s)
	sort.Strings(words)
	return strings.Join(words, " ")
}

// LocationSimilarity compares two locations: exact match or the same
// canonical city scores 1.0, substring containment scores by relative
// length, anything else falls back to the sequence ratio.
func LocationSimilarity(a, b string) float64 {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == lb {
		return 1.0
	}
	if la == "" || lb == "" {
		return 0.0
	}
	if ca, cb := location.CanonicalCity(la), location.CanonicalCity(lb); ca != "" && ca == cb {
		return 1.0
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		shorter, longer := len(la), len(lb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}
	return Ratio(la, lb)
}
