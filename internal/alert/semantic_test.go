package alert

import (
	"context"
	"testing"
	"time"

	"github.com/trackline/jobsonar/internal/domain"
	"github.com/trackline/jobsonar/internal/embedding"
	"github.com/trackline/jobsonar/internal/store"
)

// stubProvider maps known phrases to fixed vectors; unknown text gets
// an orthogonal vector.
type stubProvider struct {
	vectors map[string][]float32
	calls   int
}

func (p *stubProvider) Encode(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	if v, ok := p.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func TestSemanticMatcher(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float32{
		"Software Engineer":  {1, 0, 0},
		"software developer": {0.9, 0.1, 0},
		"accountant":         {0, 1, 0},
	}}
	m := NewSemanticMatcher(provider, 0.8)
	ctx := context.Background()

	if !m.Matches(ctx, []string{"software developer"}, "Software Engineer") {
		t.Error("near-synonym title should match")
	}
	if m.Matches(ctx, []string{"accountant"}, "Software Engineer") {
		t.Error("orthogonal keyword should not match")
	}

	// cached vectors are not re-encoded
	before := provider.calls
	m.Matches(ctx, []string{"software developer"}, "Software Engineer")
	if provider.calls != before {
		t.Errorf("expected cache hits, got %d extra encodes", provider.calls-before)
	}
}

func TestSemanticMatcherNoopProvider(t *testing.T) {
	m := NewSemanticMatcher(embedding.Noop{}, 0.8)
	if m.Matches(context.Background(), []string{"engineer"}, "Software Engineer") {
		t.Error("noop provider must never match")
	}
}

func TestEngineSemanticWidening(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	job := seedJob(t, st, 1, "Software Engineer", "Tel Aviv", time.Now().UTC())
	st.PutAlert(&domain.Alert{UserID: 7, Name: "dev jobs", IsActive: true, Keywords: []string{"software developer"}})

	// lexical only: "developer" is not in the title
	engine := NewEngine(st)
	matches, err := engine.MatchJobsToAlerts(ctx, []*domain.JobPosition{job}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("lexical-only engine matched %+v", matches)
	}

	engine.Semantic = NewSemanticMatcher(&stubProvider{vectors: map[string][]float32{
		"Software Engineer":  {1, 0, 0},
		"software developer": {0.9, 0.1, 0},
	}}, 0.8)
	matches, err = engine.MatchJobsToAlerts(ctx, []*domain.JobPosition{job}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches[7]) != 1 {
		t.Fatalf("semantic engine matches = %+v", matches)
	}
}
