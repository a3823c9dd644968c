package match

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/spigell/resume-forge/internal/corpus"
	"github.com/spigell/resume-forge/internal/extract"

	"go.uber.org/zap"
)

// DefaultTopK is how many units per requirement contribute to the aggregate
// relevance ranking.
const DefaultTopK = 5

// DimensionError reports embedding vectors of different sizes. This is a
// configuration bug (mixed providers or models), not a data problem.
type DimensionError struct {
	UnitID string
	Want   int
	Got    int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch for unit %s: requirement has %d, unit has %d", e.UnitID, e.Want, e.Got)
}

// Score is one unit's similarity against one requirement.
type Score struct {
	UnitID     string
	Similarity float64
	Combined   float64
}

// Ranking orders all units for a single requirement, best first.
type Ranking struct {
	Requirement extract.Requirement
	Scores      []Score
}

// Result carries everything one matching pass produced: the per-requirement
// leaderboards and the aggregate relevance per unit used by the assembler.
type Result struct {
	Aggregate map[string]float64
	Rankings  []Ranking
}

// Matcher runs one matching pass between requirements and corpus units.
type Matcher struct {
	topK   int
	logger *zap.Logger
}

func New(topK int, logger *zap.Logger) *Matcher {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{topK: topK, logger: logger}
}

// Match scores every requirement against every corpus unit. Combined score is
// cosine similarity times the requirement weight. Per requirement, units rank
// by combined score descending with ties broken by unit ID ascending, so the
// same inputs always produce the same order. A unit's aggregate relevance is
// the sum of its combined scores across requirements where it placed top-K.
func (m *Matcher) Match(ctx context.Context, reqs []extract.Requirement, store *corpus.Store) (*Result, error) {
	result := &Result{Aggregate: make(map[string]float64)}

	units := store.Units()
	if len(units) == 0 || len(reqs) == 0 {
		return result, nil
	}

	vectors := make(map[string][]float64, len(units))
	for _, unit := range units {
		vector, err := store.Embedding(ctx, unit)
		if err != nil {
			return nil, err
		}
		vectors[unit.ID] = vector
	}

	for _, req := range reqs {
		scores := make([]Score, 0, len(units))
		for _, unit := range units {
			vector := vectors[unit.ID]
			if len(req.Vector) != len(vector) {
				return nil, &DimensionError{UnitID: unit.ID, Want: len(req.Vector), Got: len(vector)}
			}

			similarity := CosineSimilarity(req.Vector, vector)
			scores = append(scores, Score{
				UnitID:     unit.ID,
				Similarity: similarity,
				Combined:   similarity * req.Weight,
			})
		}

		sort.SliceStable(scores, func(i, j int) bool {
			if scores[i].Combined != scores[j].Combined {
				return scores[i].Combined > scores[j].Combined
			}
			return scores[i].UnitID < scores[j].UnitID
		})

		limit := min(m.topK, len(scores))
		for _, score := range scores[:limit] {
			result.Aggregate[score.UnitID] += score.Combined
		}

		result.Rankings = append(result.Rankings, Ranking{Requirement: req, Scores: scores})
	}

	m.logger.Debug("matching finished",
		zap.Int("requirements", len(reqs)),
		zap.Int("units", len(units)),
		zap.Int("top_k", m.topK),
	)

	return result, nil
}

// Relevance returns the aggregate score for a unit, zero when it never placed.
func (r *Result) Relevance(unitID string) float64 {
	if r == nil {
		return 0
	}
	return r.Aggregate[unitID]
}

// Report summarizes the leaderboards for human inspection: for every
// requirement, the top units with their scores.
func (r *Result) Report(store *corpus.Store, limit int) map[string][]map[string]string {
	if limit <= 0 {
		limit = 3
	}

	report := make(map[string][]map[string]string, len(r.Rankings))
	for _, ranking := range r.Rankings {
		key := fmt.Sprintf("%s (weight %.2f)", ranking.Requirement.Text, ranking.Requirement.Weight)

		entries := make([]map[string]string, 0, limit)
		for _, score := range ranking.Scores[:min(limit, len(ranking.Scores))] {
			entry := map[string]string{
				"unit":       score.UnitID,
				"similarity": fmt.Sprintf("%.3f", score.Similarity),
				"combined":   fmt.Sprintf("%.3f", score.Combined),
			}
			if unit := store.FindByID(score.UnitID); unit != nil {
				entry["text"] = unit.Text
				entry["category"] = string(unit.Category)
			}
			entries = append(entries, entry)
		}
		report[key] = entries
	}
	return report
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or empty vectors yield 0, as does a zero vector on either side:
// a unit that embeds to nothing is simply not similar to anything.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
