package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spigell/resume-forge/internal/assemble"
	"github.com/spigell/resume-forge/internal/corpus"
	"github.com/spigell/resume-forge/internal/embedding"
	"github.com/spigell/resume-forge/internal/embedding/gemini"
	"github.com/spigell/resume-forge/internal/embedding/openai"
	"github.com/spigell/resume-forge/internal/extract"
	"github.com/spigell/resume-forge/internal/logger"
	"github.com/spigell/resume-forge/internal/match"
	"github.com/spigell/resume-forge/internal/render"
	"github.com/spigell/resume-forge/internal/scraper"
	"github.com/spigell/resume-forge/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	PromptYes            = "Yes"
	PromptSkip           = "Skip this posting"
	PromptNo             = "No"
	PromptReport         = "Report by requirements"
	PromptDocumentToFile = "Dump document to file"

	defaultScrapeParallelism = 3
	defaultRetryBackoff      = 2 * time.Second
	reportLimit              = 3
)

var (
	errExit = errors.New("exit requested")
	errSkip = errors.New("posting skipped")
)

var prompt = promptui.Select{
	Label: "Generate this resume?",
	Items: []string{PromptYes, PromptSkip, PromptReport, PromptDocumentToFile, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Tailor and render a resume for every configured job posting",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before rendering")
	runCmd.Flags().BoolP("refresh", "r", false, "ignore cached postings and scrape them again")

	viper.BindPFlag("scrape.refresh", runCmd.Flags().Lookup("refresh"))
}

// tailoring is the state of one posting as it moves through the pipeline.
// A failed stage fills err and leaves the other postings alone.
type tailoring struct {
	url      string
	page     *scraper.Page
	result   *match.Result
	document *assemble.Document
	err      error
}

// pipeline bundles the collaborators one run needs.
type pipeline struct {
	store      *corpus.Store
	fetcher    scraper.Fetcher
	extractor  *extract.Extractor
	matcher    *match.Matcher
	assembler  *assemble.Assembler
	pdf        *render.PDF
	renderOpts []render.Option
	logger     *zap.Logger
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-forge", zap.String("version", version))

	if config == nil {
		logger.Fatal("config is required")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.redacted(), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if strings.TrimSpace(config.Corpus) == "" {
		logger.Fatal("corpus file is required under the 'corpus' key")
	}
	if len(config.Postings) == 0 {
		logger.Fatal("at least one posting url is required under the 'postings' key")
	}
	checkPostings(config.Postings, logger)

	if err := config.Contact.Validate(); err != nil {
		logger.Fatal("checking contact details",
			zap.Error(err),
			zap.String("hint", "fill the 'contact' section of the configuration file"),
		)
	}

	provider, err := newEmbeddingProvider(ctx, config.Embedding, logger)
	if err != nil {
		logger.Fatal("building embedding provider", zap.Error(err))
	}

	store := loadCorpus(config.Corpus, provider, logger)

	logger.Info("warming embedding cache", zap.Int("units", store.Len()))
	if err := store.Warm(ctx, 0); err != nil {
		logger.Fatal("warming embedding cache", zap.Error(err))
	}

	extractor, err := extract.New(provider, config.Extract, logger)
	if err != nil {
		logger.Fatal("building extractor", zap.Error(err))
	}

	renderOpts := []render.Option{}
	if config.Render.Letter {
		renderOpts = append(renderOpts, render.PaperLetter)
	}
	if config.Render.Landscape {
		renderOpts = append(renderOpts, render.WithLandscape(true))
	}

	p := &pipeline{
		store: store,
		fetcher: scraper.WithCache(
			scraper.NewChrome(config.Scrape.RemoteWSURL, config.Scrape.Timeout, logger),
			scraper.NewCache(config.Scrape.CacheDir, logger),
			viper.GetBool("scrape.refresh"),
			logger,
		),
		extractor:  extractor,
		matcher:    match.New(config.Match.TopK, logger),
		assembler:  assemble.New(config.Assemble, logger),
		pdf:        render.NewPDF(config.Render.RemoteWSURL, config.Render.Timeout, logger),
		renderOpts: renderOpts,
		logger:     logger,
	}

	runs := make([]*tailoring, len(config.Postings))

	parallelism := config.Scrape.Parallelism
	if parallelism <= 0 {
		parallelism = defaultScrapeParallelism
	}

	var group errgroup.Group
	group.SetLimit(parallelism)
	for i, posting := range config.Postings {
		runs[i] = &tailoring{url: posting}
		group.Go(func() error {
			p.process(ctx, runs[i])
			return nil
		})
	}
	group.Wait()

	var generated, skipped, failed int

postings:
	for _, t := range runs {
		if t.err != nil {
			logger.Error("tailoring failed", zap.String("url", t.url), zap.Error(t.err))
			failed++
			continue
		}

		logger.Info("tailored document ready",
			zap.String("url", t.url),
			zap.String("job_title", t.document.JobTitle),
			zap.String("company", t.page.Company),
			zap.Int("units", t.document.UnitCount()),
			zap.Int("chars", t.document.Chars()),
		)

		action := PromptYes
		for {
			var err error
			if cmd.Flag("auto-approve").Value.String() == "false" {
				_, action, err = prompt.Run()
				if err != nil {
					logger.Fatal("exiting", zap.Error(err))
				}
			}

			if err := p.handleAction(ctx, action, t, config); err != nil {
				if errors.Is(err, errSkip) {
					skipped++
					continue postings
				}
				if errors.Is(err, errExit) {
					break postings
				}
				logger.Error("rendering failed", zap.String("url", t.url), zap.Error(err))
				failed++
				continue postings
			}

			if action == PromptYes {
				generated++
				continue postings
			}
		}
	}

	logger.Info("all postings processed",
		zap.Int("generated", generated),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
}

// process runs the non-interactive stages for one posting. Errors land in the
// tailoring state so one broken posting never stops the others.
func (p *pipeline) process(ctx context.Context, t *tailoring) {
	page, err := p.fetcher.Fetch(ctx, t.url)
	if err != nil {
		t.err = fmt.Errorf("scrape: %w", err)
		return
	}
	t.page = page

	reqs, err := p.extractor.Extract(ctx, page.Text)
	if err != nil {
		t.err = fmt.Errorf("extract: %w", err)
		return
	}

	result, err := p.matcher.Match(ctx, reqs, p.store)
	if err != nil {
		t.err = fmt.Errorf("match: %w", err)
		return
	}
	t.result = result

	document, err := p.assembler.Assemble(result, p.store, page.Title, t.url)
	if err != nil {
		t.err = fmt.Errorf("assemble: %w", err)
		return
	}
	t.document = document
}

func (p *pipeline) handleAction(ctx context.Context, action string, t *tailoring, config *Config) error {
	switch action {
	case PromptYes:
		return p.generate(ctx, t, config)
	case PromptSkip:
		p.logger.Info("skipping posting", zap.String("url", t.url))
		return errSkip
	case PromptNo:
		p.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptReport:
		pretty, _ := json.MarshalIndent(t.result.Report(p.store, reportLimit), "", "  ")
		p.logger.Info(string(pretty), zap.Int("requirements", len(t.result.Rankings)))
		return nil
	case PromptDocumentToFile:
		filename, err := t.document.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump document to file: %w", err)
		}
		p.logger.Info("dumping document to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// generate renders the document to PDF and writes the artifacts to the
// posting's output folder.
func (p *pipeline) generate(ctx context.Context, t *tailoring, config *Config) error {
	html, err := render.HTML(t.document, config.Contact)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	pdfData, err := p.pdf.Render(ctx, html, p.renderOpts...)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	dir := render.OutputDir(config.Output, t.page.Company, t.document.JobTitle)
	if err := render.Write(dir, pdfData, t.document); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	p.logger.Info("resume written",
		zap.String("url", t.url),
		zap.String("path", filepath.Join(dir, "resume.pdf")),
	)
	return nil
}

// loadCorpus loads the corpus, warns about rejected records and refuses to
// continue with an unusable corpus.
func loadCorpus(path string, provider embedding.Provider, logger *zap.Logger) *corpus.Store {
	store, err := corpus.Load(path, provider)
	if store == nil {
		logger.Fatal("loading corpus", zap.Error(err))
	}

	for _, recordErr := range multierr.Errors(err) {
		logger.Warn("skipping corpus record", zap.Error(recordErr))
	}

	if store.Len() == 0 {
		logger.Fatal("corpus has no usable units", zap.String("path", path))
	}

	logger.Info("corpus loaded",
		zap.Int("units", store.Len()),
		zap.Any("by_category", store.CountByCategory()),
	)

	return store
}

// checkPostings validates the posting URLs upfront, before any scraping.
func checkPostings(postings []string, logger *zap.Logger) {
	for _, posting := range postings {
		parsed, err := url.Parse(posting)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			logger.Fatal("posting url is not a valid http(s) url", zap.String("url", posting))
		}
		if parsed.Scheme == "http" {
			logger.Warn("posting url is plain http", zap.String("url", posting))
		}
	}
}

func newEmbeddingProvider(ctx context.Context, cfg *EmbeddingConfig, baseLogger *zap.Logger) (embedding.Provider, error) {
	name := strings.TrimSpace(strings.ToLower(cfg.Provider))

	var (
		provider embedding.Provider
		model    string
	)

	switch name {
	case "", "gemini":
		name = "gemini"

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			Env:   "GEMINI_API_KEY",
			File:  resolveKeyFile(cfg.Gemini.APIKeyFile, "embedding.gemini.api-key-file"),
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		client, err := gemini.New(ctx, apiKey, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		provider, model = client, client.Model()
	case "openai":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: cfg.OpenAI.APIKey,
			Env:   "OPENAI_API_KEY",
			File:  resolveKeyFile(cfg.OpenAI.APIKeyFile, "embedding.openai.api-key-file"),
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.openai.api-key-file or OPENAI_API_KEY_FILE)", err)
		}

		client, err := openai.New(apiKey, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		provider, model = client, client.Model()
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	providerLogger := logger.WithCommonFields(baseLogger, name, model)

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	provider = embedding.WithRetry(provider, cfg.MaxRetries, backoff, providerLogger)

	providerLogger.Info("embedding provider ready",
		zap.Int("dimension", provider.Dimension()),
		zap.Int("max_retries", cfg.MaxRetries),
	)

	return provider, nil
}

// resolveKeyFile prefers the configured path and falls back to the viper key,
// which carries the environment variable binding.
func resolveKeyFile(configured, viperKey string) string {
	keyFile := strings.TrimSpace(configured)
	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString(viperKey))
	}
	return keyFile
}
