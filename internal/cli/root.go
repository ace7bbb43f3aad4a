package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/contrapair/internal/model"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "contrapair",
	Short: "contrapair - candidate statement pairs for contradiction annotation",
	Long: `contrapair builds a candidate set of statement pairs for human annotation
of agreement and contradiction.

It embeds statements, computes pairwise cosine similarity, scores every
pair above a threshold, samples across source/opinion strata and limits
how many pairs any two sources contribute.

It does not label pairs. Labels are left empty for annotators.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("contrapair v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.contrapair/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// API keys usually live in .env next to the data
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".contrapair"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setupViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config %s: %v\n", cfgFile, err)
	}
}

// setupViper registers defaults and CONTRAPAIR_* environment lookups on v
func setupViper(v *viper.Viper) {
	v.SetEnvPrefix("CONTRAPAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := model.DefaultConfig()
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.http_proxy", "")
	v.SetDefault("embedding.https_proxy", "")
	v.SetDefault("pairing.similarity_threshold", d.Pairing.SimilarityThreshold)
	v.SetDefault("pairing.missing_metadata", d.Pairing.MissingMetadata)
	v.SetDefault("sampling.target_pairs", d.Sampling.TargetPairs)
	v.SetDefault("sampling.max_pairs_per_source", d.Sampling.MaxPairsPerSource)
	v.SetDefault("sampling.strategy", d.Sampling.Strategy)
	v.SetDefault("sampling.stratify_small_sets", d.Sampling.StratifySmallSets)
	v.SetDefault("input.max_statements", d.Input.MaxStatements)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	v.SetDefault("cache.disk_ttl", d.Cache.DiskTTL)
	v.SetDefault("concurrency.workers", d.Concurrency.Workers)
	v.SetDefault("concurrency.embed_workers", d.Concurrency.EmbedWorkers)
	v.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)
	v.SetDefault("output.verbose", d.Output.Verbose)
}

// loadConfig builds the effective configuration from v
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Embedding.BaseURL == "" && strings.EqualFold(cfg.Embedding.Provider, "ollama") {
		cfg.Embedding.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	return cfg, nil
}
