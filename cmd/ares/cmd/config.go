package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rudirid/ares-master-control-program-sub000/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate, validate or show configuration files",
	Long: `Manage configuration files for simulations.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file
  show     - Print the effective configuration after env overrides

Examples:
  ares config init -o ares.toml
  ares config validate -f ares.toml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "ares.toml", "output config file path (.toml, .yaml or .json)")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  ares run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Capital: $%.2f (%s)\n", cfg.Simulation.InitialCapital, cfg.Simulation.Timezone)
	fmt.Fprintf(out, "  Kelly: %.2f  Max risk/trade: %.1f%%  Daily loss limit: %.1f%%\n",
		cfg.Risk.KellyFraction, cfg.Risk.MaxRiskPerTradePct*100, cfg.Risk.DailyLossLimitPct*100)
	fmt.Fprintf(out, "  Journal: %s\n", cfg.Journal.Type)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
