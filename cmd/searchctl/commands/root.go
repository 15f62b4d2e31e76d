// Package commands implements the searchctl operator CLI.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/servicesearch/internal/config"
	logpkg "github.com/kailas-cloud/servicesearch/internal/logger"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

var (
	configPath   string
	envName      string
	outputFormat string
	quiet        bool
	logLevel     string
)

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchctl",
		Short: "Operate the service catalog search pipeline",
		Long: `searchctl runs catalog searches and checks the database the same way
the API server does, using the same configuration.

Configuration is read from --config, or config/<ENV>.yaml, or the built-in
defaults. A .env file in the working directory is loaded first.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch outputFormat {
			case FormatTable, FormatJSON:
			default:
				return fmt.Errorf("--format must be %q or %q, got %q", FormatTable, FormatJSON, outputFormat)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "Environment name (local, dev, prod)")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", FormatTable, "Output format: table or json")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress informational output")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		NewQueryCmd(),
		NewProbeCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute() //nolint:wrapcheck // cobra errors are already user-facing
}

// loadConfig loads .env, then the configuration selected by the global flags.
func loadConfig() (config.Config, error) {
	_ = godotenv.Load()

	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(envName)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds a logger for CLI use; zap writes to stderr so stdout stays parseable.
func newLogger() (*zap.Logger, error) {
	env := envName
	if env != "prod" {
		env = "local"
	}
	l, err := logpkg.NewLogger(env, logLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return l, nil
}
