package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rudirid/ares-master-control-program-sub000/config"
	"github.com/rudirid/ares-master-control-program-sub000/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ares",
	Short: "Event-driven trading simulator with an embedded risk engine",
	Long: `Ares replays market-moving news events against historical daily prices
without lookahead, sizes positions with fractional Kelly, and enforces
portfolio risk limits and a daily-loss circuit breaker.

It provides tools for:
  - Running a simulation from CSV event and price files
  - Sweeping Kelly fraction and stop multiplier grids
  - Following a growing event file with a live session
  - Querying the SQLite run journal`,
	SilenceUsage: true,
}

var (
	configPath string
	logLevel   string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (TOML, YAML or JSON); defaults when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
}

// loadConfig reads --config, or the defaults plus environment overrides.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	cfg := config.Default()
	config.LoadDotEnv()
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(level, cfg.Log.Format, os.Stderr)
}
