package cmd

import (
	"log"
	"time"

	"github.com/spigell/resume-forge/internal/assemble"
	"github.com/spigell/resume-forge/internal/extract"
	"github.com/spigell/resume-forge/internal/render"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-forge"
)

type Config struct {
	Corpus   string          `mapstructure:"corpus"`
	Postings []string        `mapstructure:"postings"`
	Output   string          `mapstructure:"output"`
	Contact  *render.Contact `mapstructure:"contact"`

	Scrape    *ScrapeConfig    `mapstructure:"scrape"`
	Embedding *EmbeddingConfig `mapstructure:"embedding"`
	Extract   *extract.Config  `mapstructure:"extract"`
	Match     *MatchConfig     `mapstructure:"match"`
	Assemble  *assemble.Config `mapstructure:"assemble"`
	Render    *RenderConfig    `mapstructure:"render"`
}

type ScrapeConfig struct {
	CacheDir    string        `mapstructure:"cache-dir"`
	Refresh     bool          `mapstructure:"refresh"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RemoteWSURL string        `mapstructure:"remote-ws-url"`
	Parallelism int           `mapstructure:"parallelism"`
}

type EmbeddingConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	Dimension    int           `mapstructure:"dimension"`
	MaxRetries   int           `mapstructure:"max-retries"`
	RetryBackoff time.Duration `mapstructure:"retry-backoff"`

	Gemini *ProviderKeyConfig `mapstructure:"gemini"`
	OpenAI *ProviderKeyConfig `mapstructure:"openai"`
}

type ProviderKeyConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type MatchConfig struct {
	TopK int `mapstructure:"top-k"`
}

type RenderConfig struct {
	RemoteWSURL string        `mapstructure:"remote-ws-url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Letter      bool          `mapstructure:"letter"`
	Landscape   bool          `mapstructure:"landscape"`
}

// normalize fills in nested sections omitted from the config file, so the
// rest of the cli never has to nil-check them.
func (c *Config) normalize() {
	if c.Contact == nil {
		c.Contact = &render.Contact{}
	}
	if c.Scrape == nil {
		c.Scrape = &ScrapeConfig{}
	}
	if c.Embedding == nil {
		c.Embedding = &EmbeddingConfig{}
	}
	if c.Embedding.Gemini == nil {
		c.Embedding.Gemini = &ProviderKeyConfig{}
	}
	if c.Embedding.OpenAI == nil {
		c.Embedding.OpenAI = &ProviderKeyConfig{}
	}
	if c.Match == nil {
		c.Match = &MatchConfig{}
	}
	if c.Render == nil {
		c.Render = &RenderConfig{}
	}
}

// redacted returns a copy of the config safe for debug output.
func (c *Config) redacted() Config {
	clone := *c
	if c.Embedding != nil {
		embeddingClone := *c.Embedding
		if c.Embedding.Gemini != nil && c.Embedding.Gemini.APIKey != "" {
			geminiClone := *c.Embedding.Gemini
			geminiClone.APIKey = "[redacted]"
			embeddingClone.Gemini = &geminiClone
		}
		if c.Embedding.OpenAI != nil && c.Embedding.OpenAI.APIKey != "" {
			openaiClone := *c.Embedding.OpenAI
			openaiClone.APIKey = "[redacted]"
			embeddingClone.OpenAI = &openaiClone
		}
		clone.Embedding = &embeddingClone
	}
	return clone
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-forge is a cli for tailoring resumes to job postings with embedding-based matching",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("embedding.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("embedding.openai.api-key-file", "OPENAI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding OPENAI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-forge.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for commands that touch the corpus or postings.
	if runCmd.CalledAs() == "" && corpusCheckCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config != nil {
		config.normalize()
	}

	return config, nil
}
