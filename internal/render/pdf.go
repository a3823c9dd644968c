package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"go.uber.org/zap"
)

// Options control the printed page geometry, all measures in inches.
type Options struct {
	PaperWidthInch   float64
	PaperHeightInch  float64
	MarginTopInch    float64
	MarginBottomInch float64
	MarginLeftInch   float64
	MarginRightInch  float64
	Landscape        bool
}

type Option func(*Options)

func WithPaperSize(width, height float64) Option {
	return func(o *Options) {
		o.PaperWidthInch = width
		o.PaperHeightInch = height
	}
}

func WithMargins(top, right, bottom, left float64) Option {
	return func(o *Options) {
		o.MarginTopInch = top
		o.MarginRightInch = right
		o.MarginBottomInch = bottom
		o.MarginLeftInch = left
	}
}

func WithLandscape(landscape bool) Option {
	return func(o *Options) {
		o.Landscape = landscape
	}
}

var (
	PaperA4     = WithPaperSize(8.27, 11.69)
	PaperLetter = WithPaperSize(8.5, 11)

	MarginsNormal = WithMargins(0.4, 0.4, 0.4, 0.4)
	MarginsNarrow = WithMargins(0.2, 0.2, 0.2, 0.2)
)

// DefaultRenderTimeout bounds one print, browser startup included.
const DefaultRenderTimeout = 60 * time.Second

// PDF prints rendered HTML through a headless browser. Same allocator rules
// as the scraper: a remote WebSocket URL attaches to a running Chrome, an
// empty one launches a local instance.
type PDF struct {
	remoteWSURL string
	timeout     time.Duration
	defaults    Options
	logger      *zap.Logger
}

func NewPDF(remoteWSURL string, timeout time.Duration, logger *zap.Logger) *PDF {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := Options{}
	PaperA4(&defaults)
	MarginsNormal(&defaults)

	return &PDF{
		remoteWSURL: strings.TrimSpace(remoteWSURL),
		timeout:     timeout,
		defaults:    defaults,
		logger:      logger,
	}
}

// Render prints the given HTML to PDF bytes.
func (p *PDF) Render(ctx context.Context, html string, opts ...Option) ([]byte, error) {
	options := p.defaults
	for _, opt := range opts {
		opt(&options)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if p.remoteWSURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(timeoutCtx, p.remoteWSURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(timeoutCtx, chromedp.DefaultExecAllocatorOptions[:]...)
	}
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	printParams := page.PrintToPDF().
		WithPrintBackground(true).
		WithPreferCSSPageSize(true).
		WithMarginTop(options.MarginTopInch).
		WithMarginBottom(options.MarginBottomInch).
		WithMarginLeft(options.MarginLeftInch).
		WithMarginRight(options.MarginRightInch).
		WithLandscape(options.Landscape)

	if options.PaperWidthInch > 0 && options.PaperHeightInch > 0 {
		printParams = printParams.
			WithPaperWidth(options.PaperWidthInch).
			WithPaperHeight(options.PaperHeightInch)
	}

	var pdfData []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = printParams.Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("printing resume to PDF: %w", err)
	}

	p.logger.Debug("resume printed", zap.Int("pdf_bytes", len(pdfData)))

	return pdfData, nil
}
