package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/spigell/resume-forge/internal/assemble"
	"github.com/spigell/resume-forge/internal/corpus"
)

//go:embed templates/resume.html.tmpl
var resumeTemplate string

var resumeTmpl = template.Must(template.New("resume").Funcs(template.FuncMap{
	"dates": formatDates,
}).Parse(resumeTemplate))

// HTML renders the document model into a standalone page ready for printing.
// Unit text passes through the HTML escaper, a corpus is data, not markup.
func HTML(doc *assemble.Document, contact *Contact) (string, error) {
	var buf bytes.Buffer
	err := resumeTmpl.Execute(&buf, struct {
		Contact  *Contact
		Document *assemble.Document
	}{contact, doc})
	if err != nil {
		return "", fmt.Errorf("rendering resume template: %w", err)
	}
	return buf.String(), nil
}

func formatDates(dates *corpus.DateRange) string {
	if dates == nil {
		return ""
	}
	start := dates.Start.Format("Jan 2006")
	if dates.End.IsZero() {
		return start + " - Present"
	}
	return start + " - " + dates.End.Format("Jan 2006")
}
