package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spigell/resume-forge/internal/embedding"
	"github.com/spigell/resume-forge/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxRequirements caps how many phrases survive weighting.
	DefaultMaxRequirements = 40

	embedBatchSize   = 64
	embedConcurrency = 4
	logPhrasePreview = 120
)

// ErrNoRequirements means the posting text yielded nothing to match against,
// either because it was empty or because every phrase was boilerplate.
var ErrNoRequirements = errors.New("no requirements found in posting text")

// Hint classifies what a requirement asks for.
type Hint string

const (
	HintSkill          Hint = "skill"
	HintResponsibility Hint = "responsibility"
	HintQualification  Hint = "qualification"
	HintUnknown        Hint = "unknown"
)

// Requirement is one extracted phrase with its importance weight and embedding.
// Requirements live for a single matching pass and are not persisted.
type Requirement struct {
	Text   string
	Weight float64
	Hint   Hint
	Vector []float64
}

// Config tunes the extractor from the configuration file.
type Config struct {
	// DenyPatterns are regular expressions added on top of the built-in
	// boilerplate denylist.
	DenyPatterns []string `mapstructure:"deny-patterns"`
	// MaxRequirements caps the number of extracted requirements.
	MaxRequirements int `mapstructure:"max-requirements"`
}

// Extractor turns raw posting text into weighted, embedded requirements.
type Extractor struct {
	provider        embedding.Provider
	weigher         Weigher
	denylist        []*regexp.Regexp
	maxRequirements int
	logger          *zap.Logger
}

func New(provider embedding.Provider, cfg *Config, logger *zap.Logger) (*Extractor, error) {
	if provider == nil {
		return nil, errors.New("embedding provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	patterns := append([]string(nil), defaultDenyPatterns...)
	maxRequirements := DefaultMaxRequirements
	if cfg != nil {
		patterns = append(patterns, cfg.DenyPatterns...)
		if cfg.MaxRequirements > 0 {
			maxRequirements = cfg.MaxRequirements
		}
	}

	denylist := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling deny pattern %q: %w", pattern, err)
		}
		denylist = append(denylist, compiled)
	}

	return &Extractor{
		provider:        provider,
		weigher:         DefaultWeigher,
		denylist:        denylist,
		maxRequirements: maxRequirements,
		logger:          logger,
	}, nil
}

// SetWeigher replaces the weighting strategy. Intended for experimentation;
// the default heuristic stays deterministic and dependency-free.
func (e *Extractor) SetWeigher(weigher Weigher) {
	if weigher != nil {
		e.weigher = weigher
	}
}

// Extract segments the posting text, weighs and deduplicates the phrases, and
// embeds the survivors. Duplicate phrases keep the highest weight seen.
func (e *Extractor) Extract(ctx context.Context, raw string) ([]Requirement, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoRequirements
	}

	phrases := e.segment(raw)
	if len(phrases) == 0 {
		return nil, ErrNoRequirements
	}

	reqs := make([]Requirement, 0, len(phrases))
	seen := make(map[string]int, len(phrases))
	total := len(phrases)

	for _, p := range phrases {
		weight := e.weigher(p.text, p.index, total, p.section)
		key := normalizeKey(p.text)

		if idx, ok := seen[key]; ok {
			if weight > reqs[idx].Weight {
				reqs[idx].Weight = weight
			}
			continue
		}

		seen[key] = len(reqs)
		reqs = append(reqs, Requirement{
			Text:   p.text,
			Weight: weight,
			Hint:   inferHint(p.text),
		})
	}

	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].Weight > reqs[j].Weight
	})

	if len(reqs) > e.maxRequirements {
		reqs = reqs[:e.maxRequirements]
	}

	e.logger.Debug("requirement extraction step",
		zap.Int("initial", len(phrases)),
		zap.Int("dropped", len(phrases)-len(reqs)),
		zap.Int("left", len(reqs)),
		zap.String("top", utils.TruncateForLog(reqs[0].Text, logPhrasePreview)),
	)

	if err := e.embed(ctx, reqs); err != nil {
		return nil, err
	}

	return reqs, nil
}

func (e *Extractor) embed(ctx context.Context, reqs []Requirement) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(embedConcurrency)

	for start := 0; start < len(reqs); start += embedBatchSize {
		end := min(start+embedBatchSize, len(reqs))
		group.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, req := range reqs[start:end] {
				texts = append(texts, req.Text)
			}

			vectors, err := e.provider.Embed(ctx, texts)
			if err != nil {
				return err
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(texts))
			}

			for i := range vectors {
				reqs[start+i].Vector = vectors[i]
			}
			return nil
		})
	}

	return group.Wait()
}

func normalizeKey(text string) string {
	return strings.ToLower(collapseSpaces(text))
}
