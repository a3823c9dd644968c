package assemble

import (
	"encoding/json"
	"os"
	"time"
	"unicode/utf8"

	"github.com/spigell/resume-forge/internal/corpus"
)

// Section is one rendered block of the document, units already in final order.
type Section struct {
	Category corpus.Category `json:"category"`
	Title    string          `json:"title"`
	Units    []*corpus.Unit  `json:"units"`
}

// Document is the tailored resume model handed to the renderer. It holds no
// references back into the matching pass, only the selected units.
type Document struct {
	ID          string    `json:"id"`
	JobTitle    string    `json:"job_title"`
	SourceURL   string    `json:"source_url"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []Section `json:"sections"`
}

func (d *Document) UnitCount() int {
	count := 0
	for _, section := range d.Sections {
		count += len(section.Units)
	}
	return count
}

// Chars is the total text length of the document in runes, the measure the
// page budget is enforced in.
func (d *Document) Chars() int {
	chars := 0
	for _, section := range d.Sections {
		for _, unit := range section.Units {
			chars += utf8.RuneCountInString(unit.Text)
		}
	}
	return chars
}

func (d *Document) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "resume_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return "", err
	}
	return file.Name(), nil
}
