package alert

import (
	"context"
	"log"
	"sync"

	"github.com/trackline/jobsonar/internal/embedding"
)

// SemanticMatcher widens keyword matching with vector similarity: a
// title counts as matching a keyword when their embeddings are close
// enough, even without word overlap. Provider errors degrade to
// no-match so alert evaluation never fails on a flaky backend.
type SemanticMatcher struct {
	provider  embedding.Provider
	threshold float64

	mu    sync.Mutex
	cache map[string][]float32
}

func NewSemanticMatcher(p embedding.Provider, threshold float64) *SemanticMatcher {
	return &SemanticMatcher{
		provider:  p,
		threshold: threshold,
		cache:     make(map[string][]float32),
	}
}

// Matches reports whether any keyword is semantically close to the
// title. A provider returning nil vectors (embedding.Noop) always
// reports false.
func (s *SemanticMatcher) Matches(ctx context.Context, keywords []string, title string) bool {
	titleVec, err := s.encode(ctx, title)
	if err != nil {
		log.Printf("[Matcher] encode title %q: %v", title, err)
		return false
	}
	if len(titleVec) == 0 {
		return false
	}
	for _, kw := range keywords {
		kwVec, err := s.encode(ctx, kw)
		if err != nil {
			log.Printf("[Matcher] encode keyword %q: %v", kw, err)
			continue
		}
		if embedding.Cosine(titleVec, kwVec) >= s.threshold {
			return true
		}
	}
	return false
}

// encode caches vectors; alert keywords repeat across every job in a
// batch.
func (s *SemanticMatcher) encode(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	vec, ok := s.cache[text]
	s.mu.Unlock()
	if ok {
		return vec, nil
	}
	vec, err := s.provider.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[text] = vec
	s.mu.Unlock()
	return vec, nil
}
