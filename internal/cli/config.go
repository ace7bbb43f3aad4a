package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/contrapair/internal/model"
)

var (
	configInitPath  string
	configInitForce bool
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage contrapair configuration",
	Long: `Manage contrapair configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CONTRAPAIR_*, e.g. CONTRAPAIR_SAMPLING_TARGET_PAIRS)
3. Config file (~/.contrapair/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  `Display the configuration after merging defaults, config file and environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Print(string(yamlData))

		if cfg.Embedding.APIKey != "" {
			fmt.Fprintf(os.Stderr, "\nAPI key: set (hidden)\n")
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "\nWarning: configuration is invalid: %v\n", err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file (default ~/.contrapair/config.yaml) with all options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("error finding home directory: %w", err)
			}
			path = filepath.Join(home, ".contrapair", "config.yaml")
		}

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("config file already exists: %s\nUse --force to overwrite it", path)
		}

		if err := writeDefaultConfig(path); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", path)
		fmt.Printf("\nTo view the effective configuration:\n")
		fmt.Printf("  contrapair config show\n")
		return nil
	},
}

func writeDefaultConfig(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	return renderDefaultConfig(f)
}

// renderDefaultConfig writes the commented default configuration
func renderDefaultConfig(w io.Writer) error {
	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	header := `# contrapair configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (CONTRAPAIR_*)
#   3. This config file
#   4. Built-in defaults
#
# embedding.provider: openai | ollama | hash
# pairing.missing_metadata: match (absent URLs/authors equal each other) | never
# sampling.strategy: stratified | diverse

`
	footer := `
# API keys belong in the environment or a .env file:
#   export OPENAI_API_KEY=sk-...
#   export OLLAMA_BASE_URL=http://localhost:11434
`

	for _, chunk := range [][]byte{[]byte(header), yamlData, []byte(footer)} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "write the config file here instead of ~/.contrapair/config.yaml")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
}
