package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"go.uber.org/zap"
)

// DefaultTimeout bounds one posting fetch, navigation and rendering included.
const DefaultTimeout = 60 * time.Second

// Chrome fetches postings through a headless browser, so pages that build
// their content with JavaScript still yield text. With a remote WebSocket URL
// it attaches to a running browser, otherwise it launches a local one.
type Chrome struct {
	remoteWSURL string
	timeout     time.Duration
	logger      *zap.Logger
}

func NewChrome(remoteWSURL string, timeout time.Duration, logger *zap.Logger) *Chrome {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chrome{
		remoteWSURL: strings.TrimSpace(remoteWSURL),
		timeout:     timeout,
		logger:      logger,
	}
}

func (c *Chrome) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if c.remoteWSURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(timeoutCtx, c.remoteWSURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(timeoutCtx, chromedp.DefaultExecAllocatorOptions[:]...)
	}
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var rawTitle, text string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&rawTitle),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("scraping %s: %w", pageURL, err)
	}

	title, company := splitTitle(rawTitle)
	page := &Page{
		URL:       pageURL,
		Title:     title,
		Company:   companyOrHost(company, pageURL),
		Text:      text,
		FetchedAt: time.Now().UTC(),
	}

	c.logger.Debug("posting scraped",
		zap.String("url", pageURL),
		zap.String("title", page.Title),
		zap.String("company", page.Company),
		zap.Int("text_length", len(page.Text)),
	)

	return page, nil
}
