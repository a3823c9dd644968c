package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spigell/resume-forge/internal/corpus"
	"github.com/spigell/resume-forge/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect the resume corpus",
}

var corpusCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the corpus file and summarize its contents",
	Run: func(_ *cobra.Command, _ []string) {
		corpusCheck()
	},
}

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusCheckCmd)
}

// corpusCheck loads the corpus without touching any embedding provider and
// reports what a run would work with.
func corpusCheck() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil || strings.TrimSpace(config.Corpus) == "" {
		logger.Fatal("corpus file is required under the 'corpus' key")
	}

	store, err := corpus.Load(config.Corpus, nil)
	if store == nil {
		logger.Fatal("loading corpus", zap.Error(err))
	}

	rejected := multierr.Errors(err)
	for _, recordErr := range rejected {
		logger.Warn("invalid corpus record", zap.Error(recordErr))
	}

	pretty, _ := json.MarshalIndent(store.CountByCategory(), "", "  ")
	logger.Info(fmt.Sprintf("corpus summary: \n%s", pretty),
		zap.String("path", config.Corpus),
		zap.Int("units", store.Len()),
	)

	if len(rejected) > 0 {
		logger.Fatal("corpus has invalid records", zap.Int("rejected", len(rejected)))
	}

	logger.Info("corpus is valid")
}
