package extract

import (
	"regexp"
	"strings"
)

// Weigher scores a candidate phrase in [0,1]. position is the phrase's order
// of appearance, total the number of surviving phrases, section the posting
// section the phrase was found under.
type Weigher func(text string, position, total int, section Section) float64

var (
	strongMarker = regexp.MustCompile(`(?i)\b(must|required?|essential|minimum|mandatory|need(ed)?|proficien\w*|expert\w*)\b`)
	mediumMarker = regexp.MustCompile(`(?i)\b(experience (with|in|of)|knowledge of|familiar(ity)? with|ability to|skilled (with|in)|responsible for|degree in|understanding of)\b`)
	yearsMarker  = regexp.MustCompile(`(?i)\b\d+\s*\+?\s*(years?|yrs?)\b`)

	qualificationHint  = regexp.MustCompile(`(?i)\b(degree|bachelor|master|phd|diploma|certif\w*|\d+\s*\+?\s*(years?|yrs?))\b`)
	responsibilityHint = regexp.MustCompile(`(?i)^(design|build|develop|create|maintain|lead|own|collaborate|implement|support|drive|manage|write|review|mentor|deploy|operate|troubleshoot|author|ship|debug|architect)\b|(?i)\b(you will|responsible for)\b`)
	skillHint          = regexp.MustCompile(`(?i)\b(proficien\w*|experience (with|in)|knowledge of|familiar(ity)? with|expertise|skilled)\b`)
)

// DefaultWeigher combines three deterministic signals: section and marker words
// set the base importance, earlier phrases rank above later ones, and phrases
// far from a readable length are discounted.
func DefaultWeigher(text string, position, total int, section Section) float64 {
	base := 0.45

	switch section {
	case SectionRequired:
		base += 0.15
	case SectionPreferred:
		base -= 0.15
	}

	switch {
	case strongMarker.MatchString(text):
		base += 0.25
	case mediumMarker.MatchString(text):
		base += 0.15
	}

	if yearsMarker.MatchString(text) {
		base += 0.15
	}

	positional := 1.0
	if total > 1 {
		positional = 1.0 - 0.25*float64(position)/float64(total-1)
	}

	length := 1.0
	words := len(strings.Fields(text))
	switch {
	case words < 4:
		length = float64(words) / 4
	case words > 25:
		length = 25.0 / float64(words)
	}

	weight := base * positional * length
	if weight < 0.05 {
		weight = 0.05
	}
	if weight > 1 {
		weight = 1
	}
	return weight
}

func inferHint(text string) Hint {
	switch {
	case qualificationHint.MatchString(text):
		return HintQualification
	case responsibilityHint.MatchString(text):
		return HintResponsibility
	case skillHint.MatchString(text) || len(strings.Fields(text)) <= 4:
		return HintSkill
	default:
		return HintUnknown
	}
}
