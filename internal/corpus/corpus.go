package corpus

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spigell/resume-forge/internal/embedding"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Category classifies a resume fragment. Records with a category outside the
// known set are kept under CategoryUnknown instead of being coerced or dropped.
type Category string

const (
	CategorySummary    Category = "summary"
	CategorySkill      Category = "skill"
	CategoryExperience Category = "experience"
	CategoryEducation  Category = "education"
	CategoryUnknown    Category = "unknown"
)

// ParseCategory maps a raw source value onto the known category set.
func ParseCategory(raw string) Category {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "summary":
		return CategorySummary
	case "skill", "skills":
		return CategorySkill
	case "experience", "work":
		return CategoryExperience
	case "education":
		return CategoryEducation
	default:
		return CategoryUnknown
	}
}

// DateRange bounds a unit in time. A zero End means the engagement is ongoing.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitzero"`
}

// Unit is an atomic resume fragment: one bullet, one skill entry, one degree.
// Units are immutable once loaded; their embeddings live in the store cache.
type Unit struct {
	ID       string     `json:"id"`
	Category Category   `json:"category"`
	Text     string     `json:"text"`
	Dates    *DateRange `json:"dates,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
}

// ParseError describes a single rejected corpus record. The remaining records
// still load; the caller decides whether rejected ones are worth aborting for.
type ParseError struct {
	Index  int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

// record mirrors one entry of the corpus source file.
type record struct {
	ID       string   `yaml:"id"`
	Category string   `yaml:"category"`
	Text     string   `yaml:"text"`
	Tags     []string `yaml:"tags"`
	Dates    *struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"dates"`
}

// Load reads and parses the corpus file. See Parse for the error contract.
func Load(path string, provider embedding.Provider) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	return Parse(data, provider)
}

// Parse decodes corpus source records into a store. Malformed records are
// rejected individually: the returned store holds every valid unit and the
// returned error aggregates one ParseError per rejected record. A nil store is
// returned only when the source itself cannot be decoded.
func Parse(data []byte, provider embedding.Provider) (*Store, error) {
	var records []record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing corpus source: %w", err)
	}

	store := New(provider)

	var errs error
	for i, rec := range records {
		unit, err := rec.toUnit(i)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := store.Add(unit); err != nil {
			errs = multierr.Append(errs, &ParseError{Index: i, Reason: err.Error()})
		}
	}

	return store, errs
}

func (r record) toUnit(index int) (*Unit, error) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return nil, &ParseError{Index: index, Reason: "text is required"}
	}

	if strings.TrimSpace(r.Category) == "" {
		return nil, &ParseError{Index: index, Reason: "category is required"}
	}

	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = fmt.Sprintf("u%03d", index)
	}

	unit := &Unit{
		ID:       id,
		Category: ParseCategory(r.Category),
		Text:     text,
		Tags:     r.Tags,
	}

	if r.Dates != nil {
		dates, err := parseDateRange(r.Dates.Start, r.Dates.End)
		if err != nil {
			return nil, &ParseError{Index: index, Reason: err.Error()}
		}
		unit.Dates = dates
	}

	return unit, nil
}

func parseDateRange(start, end string) (*DateRange, error) {
	startTime, err := parseDate(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	if startTime.IsZero() {
		return nil, fmt.Errorf("start date is required when dates are set")
	}

	endTime, err := parseDate(end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}

	if !endTime.IsZero() && endTime.Before(startTime) {
		return nil, fmt.Errorf("end date %q before start date %q", end, start)
	}

	return &DateRange{Start: startTime, End: endTime}, nil
}

var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// parseDate accepts year, year-month, or full dates. Empty values and the usual
// "present" spellings produce a zero time, meaning an open-ended range.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch raw {
	case "", "present", "now", "ongoing":
		return time.Time{}, nil
	}

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if parsed.Year() < 1970 || parsed.Year() > 2070 {
			return time.Time{}, fmt.Errorf("year %d out of range", parsed.Year())
		}
		return parsed, nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date format")
}
