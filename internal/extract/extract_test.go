package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/resume-forge/internal/embedding"
)

const samplePosting = `
Senior Backend Engineer

We build the data platform powering our analytics products.

Requirements:
- 5+ years of experience with Go or Rust
- Must have strong knowledge of distributed systems
- Experience with Kubernetes and container orchestration

Nice to have:
- Familiarity with gRPC
- Bonus: open source contributions

We are an equal opportunity employer. All qualified applicants will receive
consideration without regard to race, religion, or national origin.
`

func newTestExtractor(t *testing.T, cfg *Config) *Extractor {
	t.Helper()

	extractor, err := New(embedding.NewMock(8), cfg, nil)
	if err != nil {
		t.Fatalf("creating extractor: %v", err)
	}
	return extractor
}

func TestExtractEmptyTextFails(t *testing.T) {
	extractor := newTestExtractor(t, nil)

	_, err := extractor.Extract(context.Background(), "   \n\t ")
	if !errors.Is(err, ErrNoRequirements) {
		t.Fatalf("expected ErrNoRequirements, got %v", err)
	}
}

func TestExtractBoilerplateOnlyFails(t *testing.T) {
	extractor := newTestExtractor(t, nil)

	text := "We are an equal opportunity employer. All qualified applicants welcome."
	_, err := extractor.Extract(context.Background(), text)
	if !errors.Is(err, ErrNoRequirements) {
		t.Fatalf("expected ErrNoRequirements, got %v", err)
	}
}

func TestExtractDropsBoilerplateAndKeepsRequirements(t *testing.T) {
	extractor := newTestExtractor(t, nil)

	reqs, err := extractor.Extract(context.Background(), samplePosting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) == 0 {
		t.Fatal("expected requirements")
	}

	for _, req := range reqs {
		lower := strings.ToLower(req.Text)
		if strings.Contains(lower, "equal opportunity") || strings.Contains(lower, "without regard") {
			t.Fatalf("boilerplate leaked into requirements: %q", req.Text)
		}
		if req.Weight < 0 || req.Weight > 1 {
			t.Fatalf("weight out of range for %q: %f", req.Text, req.Weight)
		}
		if len(req.Vector) != 8 {
			t.Fatalf("expected embedded vector of dimension 8 for %q, got %d", req.Text, len(req.Vector))
		}
	}
}

func TestExtractRequiredSectionOutweighsPreferred(t *testing.T) {
	extractor := newTestExtractor(t, nil)

	reqs, err := extractor.Extract(context.Background(), samplePosting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	weightOf := func(fragment string) float64 {
		t.Helper()
		for _, req := range reqs {
			if strings.Contains(req.Text, fragment) {
				return req.Weight
			}
		}
		t.Fatalf("requirement containing %q not found in %+v", fragment, reqs)
		return 0
	}

	required := weightOf("distributed systems")
	preferred := weightOf("gRPC")
	if required <= preferred {
		t.Fatalf("expected required %f > preferred %f", required, preferred)
	}
}

func TestExtractDeterministic(t *testing.T) {
	extractor := newTestExtractor(t, nil)

	first, err := extractor.Extract(context.Background(), samplePosting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := extractor.Extract(context.Background(), samplePosting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected stable output, got %d then %d requirements", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text || first[i].Weight != second[i].Weight {
			t.Fatalf("position %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestExtractDeduplicatesKeepingMaxWeight(t *testing.T) {
	extractor := newTestExtractor(t, nil)

	text := `
Requirements:
- Strong knowledge of PostgreSQL required

Nice to have:
- strong   knowledge of postgresql required
`
	reqs, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches := 0
	var weight float64
	for _, req := range reqs {
		if strings.Contains(strings.ToLower(req.Text), "postgresql") {
			matches++
			weight = req.Weight
		}
	}
	if matches != 1 {
		t.Fatalf("expected case-insensitive dedupe to one entry, got %d", matches)
	}

	// The surviving weight must come from the required section occurrence.
	solo, err := extractor.Extract(context.Background(), "Nice to have:\n- strong knowledge of postgresql required")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if weight <= solo[0].Weight {
		t.Fatalf("expected merged weight %f above preferred-only weight %f", weight, solo[0].Weight)
	}
}

func TestExtractYearsMarkerBoostsWeight(t *testing.T) {
	extractor := newTestExtractor(t, nil)

	with, err := extractor.Extract(context.Background(), "7+ years of backend development experience here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	without, err := extractor.Extract(context.Background(), "some plain backend development experience here today")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if with[0].Weight <= without[0].Weight {
		t.Fatalf("expected years marker boost: %f <= %f", with[0].Weight, without[0].Weight)
	}
}

func TestExtractHonorsMaxRequirements(t *testing.T) {
	extractor := newTestExtractor(t, &Config{MaxRequirements: 2})

	reqs, err := extractor.Extract(context.Background(), samplePosting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Weight < reqs[1].Weight {
		t.Fatalf("expected descending weights, got %f then %f", reqs[0].Weight, reqs[1].Weight)
	}
}

func TestExtractCustomDenyPattern(t *testing.T) {
	extractor := newTestExtractor(t, &Config{DenyPatterns: []string{`(?i)referral bonus`}})

	text := "Experience with Go services required. Ask about our referral bonus program."
	reqs, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, req := range reqs {
		if strings.Contains(strings.ToLower(req.Text), "referral") {
			t.Fatalf("custom deny pattern ignored: %q", req.Text)
		}
	}
}

func TestNewRejectsInvalidDenyPattern(t *testing.T) {
	_, err := New(embedding.NewMock(8), &Config{DenyPatterns: []string{`([`}}, nil)
	if err == nil {
		t.Fatal("expected compile error for invalid pattern")
	}
}

func TestInferHint(t *testing.T) {
	tests := []struct {
		text string
		want Hint
	}{
		{"Bachelor degree in Computer Science", HintQualification},
		{"5+ years of Go", HintQualification},
		{"Design and build scalable services", HintResponsibility},
		{"Proficiency with Kubernetes", HintSkill},
		{"Python and Rust", HintSkill},
		{"A collaborative mindset is valued across our organization", HintUnknown},
	}

	for _, tt := range tests {
		if got := inferHint(tt.text); got != tt.want {
			t.Fatalf("inferHint(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestSegmentKeepsDotsInsideTokens(t *testing.T) {
	extractor := newTestExtractor(t, nil)

	phrases := extractor.segment("Experience with Node.js and Vue.js required. Strong CS fundamentals.")
	if len(phrases) != 2 {
		t.Fatalf("expected 2 phrases, got %d: %+v", len(phrases), phrases)
	}
	if !strings.Contains(phrases[0].text, "Node.js") {
		t.Fatalf("token with dot was split: %q", phrases[0].text)
	}
}
