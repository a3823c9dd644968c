package assemble

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spigell/resume-forge/internal/corpus"
	"github.com/spigell/resume-forge/internal/extract"
	"github.com/spigell/resume-forge/internal/match"
)

type vectorProvider struct {
	vectors   map[string][]float64
	dimension int
}

func (p *vectorProvider) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if vector, ok := p.vectors[text]; ok {
			out[i] = vector
			continue
		}
		out[i] = make([]float64, p.dimension)
	}
	return out, nil
}

func (p *vectorProvider) Dimension() int { return p.dimension }

func buildStore(t *testing.T, units ...*corpus.Unit) *corpus.Store {
	t.Helper()

	store := corpus.New(nil)
	for _, unit := range units {
		if err := store.Add(unit); err != nil {
			t.Fatalf("adding unit %s: %v", unit.ID, err)
		}
	}
	return store
}

func relevance(scores map[string]float64) *match.Result {
	return &match.Result{Aggregate: scores}
}

func sectionIDs(section Section) []string {
	ids := make([]string, 0, len(section.Units))
	for _, unit := range section.Units {
		ids = append(ids, unit.ID)
	}
	return ids
}

func assertOrder(t *testing.T, section Section, want ...string) {
	t.Helper()

	got := sectionIDs(section)
	if len(got) != len(want) {
		t.Fatalf("expected units %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected units %v, got %v", want, got)
		}
	}
}

func TestAssembleCapacityKeepsMostRelevantSkills(t *testing.T) {
	provider := &vectorProvider{
		dimension: 2,
		vectors: map[string][]float64{
			"Python":    {0.6, 0.4},
			"Rust":      {0.95, 0.05},
			"gardening": {0.01, 0.99},
		},
	}
	store := corpus.New(provider)
	units := []*corpus.Unit{
		{ID: "k1", Category: corpus.CategorySkill, Text: "Python"},
		{ID: "k2", Category: corpus.CategorySkill, Text: "Rust"},
		{ID: "k3", Category: corpus.CategorySkill, Text: "gardening"},
	}
	for _, unit := range units {
		if err := store.Add(unit); err != nil {
			t.Fatalf("adding unit: %v", err)
		}
	}

	result, err := match.New(5, nil).Match(context.Background(), []extract.Requirement{
		{Text: "systems programming", Weight: 0.9, Vector: []float64{1, 0}},
	}, store)
	if err != nil {
		t.Fatalf("matching: %v", err)
	}

	assembler := New(&Config{
		Sections: []SectionConfig{
			{Category: corpus.CategorySkill, MaxUnits: 2, MinUnits: 1},
		},
	}, nil)

	doc, err := assembler.Assemble(result, store, "Systems Engineer", "https://example.com/job")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Sections) != 1 {
		t.Fatalf("expected one section, got %d", len(doc.Sections))
	}
	assertOrder(t, doc.Sections[0], "k2", "k1")
}

func TestAssembleExperienceOrderedByRecency(t *testing.T) {
	store := buildStore(t,
		&corpus.Unit{ID: "e1", Category: corpus.CategoryExperience, Text: "Led platform team",
			Dates: &corpus.DateRange{Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}},
		&corpus.Unit{ID: "e2", Category: corpus.CategoryExperience, Text: "Built ingestion pipeline",
			Dates: &corpus.DateRange{Start: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)}},
		&corpus.Unit{ID: "e3", Category: corpus.CategoryExperience, Text: "Freelance consulting"},
	)

	assembler := New(&Config{
		Sections: []SectionConfig{
			{Category: corpus.CategoryExperience, MaxUnits: 3, MinUnits: 1},
		},
	}, nil)

	doc, err := assembler.Assemble(relevance(map[string]float64{"e1": 0.9, "e2": 0.5, "e3": 0.7}),
		store, "Engineer", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Relevance admitted all three; recency orders them, undated last.
	assertOrder(t, doc.Sections[0], "e2", "e1", "e3")
}

func TestAssembleTrimsLowestRelevanceFirst(t *testing.T) {
	store := buildStore(t,
		&corpus.Unit{ID: "s1", Category: corpus.CategorySummary, Text: "Seasoned engineer."},
		&corpus.Unit{ID: "k1", Category: corpus.CategorySkill, Text: "Go"},
		&corpus.Unit{ID: "k2", Category: corpus.CategorySkill, Text: "Rust"},
		&corpus.Unit{ID: "k3", Category: corpus.CategorySkill, Text: "COBOL"},
	)
	scores := map[string]float64{"s1": 0.9, "k1": 0.8, "k2": 0.7, "k3": 0.1}

	assembler := New(&Config{
		PageBudget: 25,
		Sections: []SectionConfig{
			{Category: corpus.CategorySummary, MaxUnits: 1, MinUnits: 1},
			{Category: corpus.CategorySkill, MaxUnits: 3, MinUnits: 1},
		},
	}, nil)

	doc, err := assembler.Assemble(relevance(scores), store, "Engineer", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertOrder(t, doc.Sections[0], "s1")
	assertOrder(t, doc.Sections[1], "k1", "k2")
	if doc.Chars() != 24 {
		t.Fatalf("expected 24 chars after trim, got %d", doc.Chars())
	}
	if doc.UnitCount() != 3 {
		t.Fatalf("expected 3 units after trim, got %d", doc.UnitCount())
	}
}

func TestAssembleBudgetInfeasible(t *testing.T) {
	store := buildStore(t,
		&corpus.Unit{ID: "s1", Category: corpus.CategorySummary, Text: "Seasoned engineer."},
		&corpus.Unit{ID: "k1", Category: corpus.CategorySkill, Text: "Go"},
		&corpus.Unit{ID: "k2", Category: corpus.CategorySkill, Text: "Rust"},
		&corpus.Unit{ID: "k3", Category: corpus.CategorySkill, Text: "COBOL"},
	)
	scores := map[string]float64{"s1": 0.9, "k1": 0.8, "k2": 0.7, "k3": 0.1}

	assembler := New(&Config{
		PageBudget: 10,
		Sections: []SectionConfig{
			{Category: corpus.CategorySummary, MaxUnits: 1, MinUnits: 1},
			{Category: corpus.CategorySkill, MaxUnits: 3, MinUnits: 1},
		},
	}, nil)

	_, err := assembler.Assemble(relevance(scores), store, "Engineer", "")

	var budgetErr *BudgetError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected BudgetError, got %v", err)
	}
	if budgetErr.Budget != 10 || budgetErr.Required != 20 {
		t.Fatalf("unexpected error details: %+v", budgetErr)
	}
}

func TestAssembleNeverDuplicatesUnits(t *testing.T) {
	store := buildStore(t,
		&corpus.Unit{ID: "k1", Category: corpus.CategorySkill, Text: "Go"},
		&corpus.Unit{ID: "k2", Category: corpus.CategorySkill, Text: "Rust"},
	)

	// The same category twice must not place the same unit twice.
	assembler := New(&Config{
		Sections: []SectionConfig{
			{Category: corpus.CategorySkill, MaxUnits: 1},
			{Category: corpus.CategorySkill, MaxUnits: 5},
		},
	}, nil)

	doc, err := assembler.Assemble(relevance(map[string]float64{"k1": 0.9, "k2": 0.5}),
		store, "Engineer", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, section := range doc.Sections {
		for _, unit := range section.Units {
			if seen[unit.ID] {
				t.Fatalf("unit %s appears twice", unit.ID)
			}
			seen[unit.ID] = true
		}
	}
	assertOrder(t, doc.Sections[0], "k1")
	assertOrder(t, doc.Sections[1], "k2")
}

func TestAssembleSectionCharLimitSkipsOversized(t *testing.T) {
	store := buildStore(t,
		&corpus.Unit{ID: "a", Category: corpus.CategorySkill, Text: "Kubernetes administration"},
		&corpus.Unit{ID: "b", Category: corpus.CategorySkill, Text: "Go"},
		&corpus.Unit{ID: "c", Category: corpus.CategorySkill, Text: "Terraform"},
		&corpus.Unit{ID: "d", Category: corpus.CategorySkill, Text: "CI"},
	)
	scores := map[string]float64{"a": 0.9, "b": 0.8, "c": 0.7, "d": 0.6}

	assembler := New(&Config{
		Sections: []SectionConfig{
			{Category: corpus.CategorySkill, MaxChars: 10},
		},
	}, nil)

	doc, err := assembler.Assemble(relevance(scores), store, "Engineer", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "Kubernetes administration" and "Terraform" do not fit, the smaller
	// but less relevant "CI" still does.
	assertOrder(t, doc.Sections[0], "b", "d")
}

func TestAssembleMissingCategoryIsNotAFailure(t *testing.T) {
	store := buildStore(t,
		&corpus.Unit{ID: "s1", Category: corpus.CategorySummary, Text: "Seasoned engineer."},
	)

	assembler := New(&Config{
		Sections: []SectionConfig{
			{Category: corpus.CategorySummary, MaxUnits: 1, MinUnits: 1},
			{Category: corpus.CategoryEducation, MaxUnits: 2, MinUnits: 1},
		},
	}, nil)

	doc, err := assembler.Assemble(relevance(map[string]float64{"s1": 0.5}), store, "Engineer", "")
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}

	if len(doc.Sections) != 1 {
		t.Fatalf("expected only the summary section, got %d sections", len(doc.Sections))
	}
	if doc.Sections[0].Category != corpus.CategorySummary {
		t.Fatalf("unexpected section %s", doc.Sections[0].Category)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	store := buildStore(t,
		&corpus.Unit{ID: "s1", Category: corpus.CategorySummary, Text: "Seasoned engineer."},
		&corpus.Unit{ID: "k1", Category: corpus.CategorySkill, Text: "Go"},
		&corpus.Unit{ID: "k2", Category: corpus.CategorySkill, Text: "Rust"},
		&corpus.Unit{ID: "e1", Category: corpus.CategoryExperience, Text: "Led platform team",
			Dates: &corpus.DateRange{Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}},
	)
	scores := map[string]float64{"s1": 0.9, "k1": 0.4, "k2": 0.4, "e1": 0.6}

	assembler := New(nil, nil)

	first, err := assembler.Assemble(relevance(scores), store, "Engineer", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := assembler.Assemble(relevance(scores), store, "Engineer", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.Sections) != len(second.Sections) {
		t.Fatalf("runs differ: %d vs %d sections", len(first.Sections), len(second.Sections))
	}
	for i := range first.Sections {
		assertOrder(t, second.Sections[i], sectionIDs(first.Sections[i])...)
	}
}

func TestAssembleEmptyCorpus(t *testing.T) {
	store := buildStore(t)

	doc, err := New(nil, nil).Assemble(relevance(nil), store, "Engineer", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 0 || doc.UnitCount() != 0 {
		t.Fatalf("expected an empty document, got %+v", doc)
	}
}

func TestDocumentDumpToTmpFile(t *testing.T) {
	store := buildStore(t,
		&corpus.Unit{ID: "s1", Category: corpus.CategorySummary, Text: "Seasoned engineer."},
	)

	doc, err := New(nil, nil).Assemble(relevance(map[string]float64{"s1": 1}), store, "Staff Engineer", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := doc.DumpToTmpFile()
	if err != nil {
		t.Fatalf("dumping document: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}
	if !strings.Contains(string(data), "Staff Engineer") {
		t.Fatalf("dump does not mention the job title: %s", data)
	}
	if !strings.Contains(string(data), "Seasoned engineer.") {
		t.Fatalf("dump does not mention the unit text: %s", data)
	}
}
