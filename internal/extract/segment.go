package extract

import (
	"regexp"
	"strings"
)

// Section tracks which part of the posting a phrase came from. Headers like
// "Requirements:" or "Nice to have:" switch the section for following lines.
type Section int

const (
	SectionNone Section = iota
	SectionRequired
	SectionPreferred
)

type phrase struct {
	text    string
	index   int
	section Section
}

var (
	requiredHeader = regexp.MustCompile(`(?i)^((minimum|basic|key|core) )?(requirements?|qualifications?|must[- ]haves?|skills?)$|(?i)^what (we are|we're) looking for$|(?i)^what you('|’)ll need$|(?i)^about you$|(?i)^who you are$`)

	preferredHeader = regexp.MustCompile(`(?i)^(nice[- ]to[- ]haves?|preferred( qualifications?| skills?)?|bonus( points?)?|pluses)$`)

	sentenceEnd  = regexp.MustCompile(`[.!?;]+(\s+|$)`)
	numberedItem = regexp.MustCompile(`^\d+[.)]\s+`)
)

const (
	minPhraseWords = 2
	minPhraseRunes = 8
)

// segment splits posting text into candidate phrases, tracks section headers,
// and drops boilerplate matched by the deny patterns.
func (e *Extractor) segment(raw string) []phrase {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var (
		phrases []phrase
		current = SectionNone
		index   int
	)

	for _, line := range strings.Split(raw, "\n") {
		line = trimBullet(line)
		if line == "" {
			continue
		}

		if section, remainder, ok := matchHeader(line); ok {
			current = section
			if remainder == "" {
				continue
			}
			line = remainder
		}

		for _, sentence := range splitSentences(line) {
			if !usable(sentence) {
				continue
			}
			if e.denied(sentence) {
				continue
			}
			phrases = append(phrases, phrase{text: sentence, index: index, section: current})
			index++
		}
	}

	return phrases
}

// matchHeader recognizes section headers. A header is either a whole short line
// or the part before a colon; anything after the colon is returned for normal
// phrase processing.
func matchHeader(line string) (Section, string, bool) {
	head := line
	remainder := ""
	if idx := strings.Index(line, ":"); idx >= 0 {
		head = strings.TrimSpace(line[:idx])
		remainder = strings.TrimSpace(line[idx+1:])
	} else if len(strings.Fields(line)) > 6 {
		return SectionNone, "", false
	}

	// Preferred wins first: "preferred qualifications" matches both patterns.
	switch {
	case preferredHeader.MatchString(head):
		return SectionPreferred, remainder, true
	case requiredHeader.MatchString(head):
		return SectionRequired, remainder, true
	}
	return SectionNone, "", false
}

// splitSentences cuts on sentence punctuation followed by whitespace, so dots
// inside tokens like "Node.js" or "CI/CD" survive.
func splitSentences(line string) []string {
	parts := sentenceEnd.Split(line, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = collapseSpaces(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func trimBullet(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "•●▪‣·*–—- \t")
	line = numberedItem.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func usable(s string) bool {
	if len(strings.Fields(s)) < minPhraseWords {
		return false
	}
	return len([]rune(s)) >= minPhraseRunes
}

func (e *Extractor) denied(s string) bool {
	for _, pattern := range e.denylist {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// defaultDenyPatterns drop the boilerplate that job boards append to every
// posting: EEO statements, legal disclaimers, benefits and application chrome.
var defaultDenyPatterns = []string{
	`(?i)equal (employment )?opportunit`,
	`(?i)without regard to`,
	`(?i)all qualified applicants`,
	`(?i)reasonable accommodations?`,
	`(?i)gender identity|sexual orientation|veteran status|national origin|marital status`,
	`(?i)e-?verify`,
	`(?i)privacy (policy|notice)`,
	`(?i)cookies?\b`,
	`(?i)drug[- ]free`,
	`(?i)background check`,
	`(?i)401\s?\(?k\)?`,
	`(?i)(salary|compensation|pay) (range|band)`,
	`(?i)click (here|the link|apply)`,
	`(?i)submit your (resume|application|cv)`,
}
