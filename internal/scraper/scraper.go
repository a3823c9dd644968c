package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Page is one scraped job posting, reduced to what the pipeline needs.
type Page struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fetcher loads a job posting. Implementations decide how: a headless
// browser, a disk cache in front of one, or a stub in tests.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// titleSeparators are what job boards put between the posting title and the
// company or site name, checked in order.
var titleSeparators = []string{" - ", " – ", " | ", " · "}

// splitTitle separates "Senior Go Engineer - Acme Corp" into the posting
// title and the trailing company part. The last separator wins, so titles
// like "Go - Backend - Acme" keep their inner dash.
func splitTitle(raw string) (title, company string) {
	title = strings.TrimSpace(raw)
	for _, sep := range titleSeparators {
		if idx := strings.LastIndex(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+len(sep):])
		}
	}
	return title, ""
}

// companyOrHost falls back to the posting's host when the page title carries
// no company part.
func companyOrHost(company, pageURL string) string {
	if company != "" {
		return company
	}
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}
