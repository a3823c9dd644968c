package assemble

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/spigell/resume-forge/internal/corpus"
	"github.com/spigell/resume-forge/internal/match"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPageBudget is the global character budget of an assembled document,
// roughly one rendered page.
const DefaultPageBudget = 3500

// SectionConfig shapes one document section. MaxUnits and MaxChars of zero
// mean unlimited; MinUnits is the floor the page budget trim may not cross.
type SectionConfig struct {
	Category corpus.Category `mapstructure:"category"`
	MaxUnits int             `mapstructure:"max-units"`
	MaxChars int             `mapstructure:"max-chars"`
	MinUnits int             `mapstructure:"min-units"`
}

// Config is the assembly plan: section order with per-section limits and the
// global page budget in characters (zero disables the global trim).
type Config struct {
	Sections   []SectionConfig `mapstructure:"sections"`
	PageBudget int             `mapstructure:"page-budget"`
}

func DefaultConfig() *Config {
	return &Config{
		PageBudget: DefaultPageBudget,
		Sections: []SectionConfig{
			{Category: corpus.CategorySummary, MaxUnits: 1, MinUnits: 1},
			{Category: corpus.CategorySkill, MaxUnits: 10, MinUnits: 1},
			{Category: corpus.CategoryExperience, MaxUnits: 5, MinUnits: 1},
			{Category: corpus.CategoryEducation, MaxUnits: 3, MinUnits: 1},
		},
	}
}

// BudgetError reports a page budget too small for the configured section
// minimums. The caller can relax the budget or lower the minimums.
type BudgetError struct {
	Budget   int
	Required int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("page budget of %d characters cannot hold the section minimums, at least %d required", e.Budget, e.Required)
}

// Assembler builds tailored documents from one matching result.
type Assembler struct {
	config *Config
	logger *zap.Logger
}

func New(config *Config, logger *zap.Logger) *Assembler {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{config: config, logger: logger}
}

// draft is one section being filled before final ordering.
type draft struct {
	cfg   SectionConfig
	units []*corpus.Unit
}

func (d *draft) remove(id string) {
	for i, unit := range d.units {
		if unit.ID == id {
			d.units = append(d.units[:i], d.units[i+1:]...)
			return
		}
	}
}

// Assemble selects and orders corpus units into a document. Relevance decides
// which units get in, section by section in configured order, until the
// section's unit and character limits are reached; a unit that does not fit
// the remaining character limit is skipped, not a stopper. Experience and
// education sections are then reordered most recent first. If the filled
// document exceeds the page budget, the least relevant units are dropped
// until it fits, never below a section's minimum; a budget too small even for
// the minimums fails with BudgetError. Identical inputs assemble identically.
func (a *Assembler) Assemble(result *match.Result, store *corpus.Store, jobTitle, sourceURL string) (*Document, error) {
	picked := make(map[string]bool)
	drafts := make([]*draft, 0, len(a.config.Sections))

	for _, cfg := range a.config.Sections {
		candidates := store.Units(cfg.Category)
		sort.SliceStable(candidates, func(i, j int) bool {
			ri, rj := result.Relevance(candidates[i].ID), result.Relevance(candidates[j].ID)
			if ri != rj {
				return ri > rj
			}
			return candidates[i].ID < candidates[j].ID
		})

		sec := &draft{cfg: cfg}
		chars := 0
		for _, unit := range candidates {
			if cfg.MaxUnits > 0 && len(sec.units) >= cfg.MaxUnits {
				break
			}
			if picked[unit.ID] {
				continue
			}
			size := utf8.RuneCountInString(unit.Text)
			if cfg.MaxChars > 0 && chars+size > cfg.MaxChars {
				continue
			}
			sec.units = append(sec.units, unit)
			chars += size
			picked[unit.ID] = true
		}
		drafts = append(drafts, sec)
	}

	if a.config.PageBudget > 0 {
		if err := a.trim(drafts, result); err != nil {
			return nil, err
		}
	}

	doc := &Document{
		ID:          uuid.NewString(),
		JobTitle:    jobTitle,
		SourceURL:   sourceURL,
		GeneratedAt: time.Now().UTC(),
	}
	for _, sec := range drafts {
		if len(sec.units) == 0 {
			continue
		}
		orderUnits(sec.cfg.Category, sec.units)
		doc.Sections = append(doc.Sections, Section{
			Category: sec.cfg.Category,
			Title:    sectionTitle(sec.cfg.Category),
			Units:    sec.units,
		})
	}

	a.logger.Debug("document assembled",
		zap.String("job_title", jobTitle),
		zap.Int("units", doc.UnitCount()),
		zap.Int("chars", doc.Chars()),
	)

	return doc, nil
}

// trim drops the least relevant units until the document fits the page
// budget. Equal relevance drops the higher unit ID first, keeping the pass
// deterministic. Sections never shrink below their configured minimum.
func (a *Assembler) trim(drafts []*draft, result *match.Result) error {
	total := 0
	for _, sec := range drafts {
		for _, unit := range sec.units {
			total += utf8.RuneCountInString(unit.Text)
		}
	}
	if total <= a.config.PageBudget {
		return nil
	}

	type removal struct {
		sec  *draft
		unit *corpus.Unit
	}
	var candidates []removal
	for _, sec := range drafts {
		for _, unit := range sec.units {
			candidates = append(candidates, removal{sec: sec, unit: unit})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := result.Relevance(candidates[i].unit.ID), result.Relevance(candidates[j].unit.ID)
		if ri != rj {
			return ri < rj
		}
		return candidates[i].unit.ID > candidates[j].unit.ID
	})

	for _, cand := range candidates {
		if total <= a.config.PageBudget {
			break
		}
		if len(cand.sec.units) <= cand.sec.cfg.MinUnits {
			continue
		}
		cand.sec.remove(cand.unit.ID)
		total -= utf8.RuneCountInString(cand.unit.Text)
	}

	if total > a.config.PageBudget {
		return &BudgetError{Budget: a.config.PageBudget, Required: total}
	}
	return nil
}

// orderUnits applies the final within-section order. Relevance decided
// inclusion; experience and education present most recent first, undated
// units last. Other categories keep their relevance order.
func orderUnits(category corpus.Category, units []*corpus.Unit) {
	if category != corpus.CategoryExperience && category != corpus.CategoryEducation {
		return
	}
	sort.SliceStable(units, func(i, j int) bool {
		di, dj := units[i].Dates, units[j].Dates
		switch {
		case di == nil && dj == nil:
			return units[i].ID < units[j].ID
		case di == nil:
			return false
		case dj == nil:
			return true
		}
		if !di.Start.Equal(dj.Start) {
			return di.Start.After(dj.Start)
		}
		return units[i].ID < units[j].ID
	})
}

func sectionTitle(category corpus.Category) string {
	switch category {
	case corpus.CategorySummary:
		return "Summary"
	case corpus.CategorySkill:
		return "Skills"
	case corpus.CategoryExperience:
		return "Experience"
	case corpus.CategoryEducation:
		return "Education"
	default:
		return "Additional"
	}
}
