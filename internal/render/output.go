package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spigell/resume-forge/internal/assemble"
)

// DefaultOutputDir is where finished resumes land, one folder per posting.
const DefaultOutputDir = "resumes"

const (
	pdfFileName      = "resume.pdf"
	documentFileName = "document.json"
)

// maxFolderRunes keeps generated folder names well under common path limits.
const maxFolderRunes = 120

var unsafePathChars = regexp.MustCompile(`[<>:"/\\|?*]+`)

// OutputDir builds the destination folder for one posting, named after the
// company and job title the way a person would file it by hand.
func OutputDir(base, company, jobTitle string) string {
	if base == "" {
		base = DefaultOutputDir
	}

	folder := strings.TrimSpace(strings.TrimSpace(company) + " " + strings.TrimSpace(jobTitle))
	folder = sanitizeFolder(folder)
	if folder == "" {
		folder = "resume"
	}

	return filepath.Join(base, folder)
}

func sanitizeFolder(name string) string {
	name = unsafePathChars.ReplaceAllString(name, "-")
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, ". ")

	runes := []rune(name)
	if len(runes) > maxFolderRunes {
		name = strings.TrimSpace(string(runes[:maxFolderRunes]))
	}
	return name
}

// Write stores the finished artifacts: the printed PDF plus the document
// model as JSON next to it, so a run can be inspected without rerunning it.
func Write(dir string, pdf []byte, doc *assemble.Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, pdfFileName), pdf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", pdfFileName, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document model: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, documentFileName), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", documentFileName, err)
	}

	return nil
}
