package match

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "", 0.0},
		{"", "abc", 0.0},
		{"abc", "abc", 1.0},
		{"abcd", "bcde", 2.0 * 3.0 / 8.0},
		{"abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); !almostEqual(got, tt.want) {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRatioSymmetricBounds(t *testing.T) {
	pairs := [][2]string{
		{"software engineer", "senior software engineer"},
		{"tel aviv", "tel-aviv"},
		{"data scientist", "data analyst"},
	}
	for _, p := range pairs {
		ab := Ratio(p[0], p[1])
		ba := Ratio(p[1], p[0])
		if !almostEqual(ab, ba) {
			t.Errorf("Ratio not symmetric for %q/%q: %v vs %v", p[0], p[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Errorf("Ratio(%q, %q) = %v out of [0,1]", p[0], p[1], ab)
		}
	}
}

func TestTokenize(t *testing.T) {
	words := Tokenize("VP, Engineering & GM")
	for _, w := range []string{"vp", "engineering", "gm"} {
		if !words[w] {
			t.Errorf("expected token %q in %v", w, words)
		}
	}
	if len(words) != 3 {
		t.Errorf("expected 3 tokens, got %v", words)
	}

	if got := Tokenize("the of and"); len(got) != 0 {
		t.Errorf("stop words should be dropped, got %v", got)
	}
}

func TestKeywordMatches(t *testing.T) {
	tests := []struct {
		keyword, title string
		want           bool
	}{
		{"vp engineering", "VP, Engineering & GM", true},
		{"head of engineering", "Head, Engineering", true},
		{"software engineer", "Senior Software Engineer", true},
		{"software engineer", "Software Developer", false},
		{"golang", "Backend Engineer (Go)", false},
		{"", "Senior Software Engineer", false},
		{"the", "The Best Job", false},
	}
	for _, tt := range tests {
		if got := KeywordMatches(tt.keyword, tt.title); got != tt.want {
			t.Errorf("KeywordMatches(%q, %q) = %v, want %v", tt.keyword, tt.title, got, tt.want)
		}
	}
}

func TestAnyKeywordMatches(t *testing.T) {
	if !AnyKeywordMatches([]string{"scala", "backend engineer"}, "Backend Engineer") {
		t.Error("expected any-match to succeed")
	}
	if AnyKeywordMatches([]string{"scala", "frontend"}, "Backend Engineer") {
		t.Error("expected any-match to fail")
	}
	if AnyKeywordMatches(nil, "Backend Engineer") {
		t.Error("no keywords should never match")
	}
}
