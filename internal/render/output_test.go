package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     string
		company  string
		jobTitle string
		want     string
	}{
		{
			name:     "default base",
			company:  "Acme Corp",
			jobTitle: "Senior Go Engineer",
			want:     filepath.Join("resumes", "Acme Corp Senior Go Engineer"),
		},
		{
			name:     "custom base",
			base:     "out",
			company:  "Acme",
			jobTitle: "SRE",
			want:     filepath.Join("out", "Acme SRE"),
		},
		{
			name:     "unsafe characters replaced",
			company:  "Acme/Corp",
			jobTitle: "Go: Backend",
			want:     filepath.Join("resumes", "Acme-Corp Go- Backend"),
		},
		{
			name: "empty names fall back",
			want: filepath.Join("resumes", "resume"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputDir(tt.base, tt.company, tt.jobTitle); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestOutputDirTruncatesLongNames(t *testing.T) {
	t.Parallel()

	dir := OutputDir("", strings.Repeat("a", 200), "Engineer")
	folder := filepath.Base(dir)
	if len([]rune(folder)) > maxFolderRunes {
		t.Fatalf("folder name not truncated: %d runes", len([]rune(folder)))
	}
}

func TestWriteStoresArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Acme Senior Go Engineer")
	doc := testDocument()

	if err := Write(dir, []byte("%PDF-1.4 fake"), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pdf, err := os.ReadFile(filepath.Join(dir, "resume.pdf"))
	if err != nil {
		t.Fatalf("reading pdf: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Fatalf("unexpected pdf content: %q", pdf)
	}

	data, err := os.ReadFile(filepath.Join(dir, "document.json"))
	if err != nil {
		t.Fatalf("reading document model: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("document model is not valid JSON: %v", err)
	}
	if decoded["job_title"] != "Senior Go Engineer" {
		t.Fatalf("expected job title in document model, got %v", decoded["job_title"])
	}
}
