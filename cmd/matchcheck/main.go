package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/config"
	logpkg "github.com/kailas-cloud/matchcheck/internal/logger"
	"github.com/kailas-cloud/matchcheck/internal/version"
)

var (
	envName    string
	configPath string

	rootCmd = &cobra.Command{
		Use:   "matchcheck",
		Short: "Verify boolean match queries against a search backend",
		Long: `matchcheck creates a search index, fills it with synthetic documents,
checks that bool/should match queries return the expected hit counts,
and drops the index again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "config environment (local, dev, test, prod); defaults to $ENV")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "explicit config file; overrides --env")

	rootCmd.AddCommand(versionCmd, newRunCmd(), newServeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file from flags and builds the logger.
func loadConfig() (config.Config, *zap.Logger, string, error) {
	env := envName
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, "", fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, env, nil
}
