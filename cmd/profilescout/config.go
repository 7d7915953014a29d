package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"profilescout/pkg/config"
	"profilescout/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage profilescout configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (PROFILESCOUT_*)
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option at its default value.

The file is written to '.profilescout.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

Connection secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration for syntax errors and invalid values, and
warn about settings that are legal but likely to cause trouble.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".profilescout.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		return fmt.Errorf("refusing to overwrite %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	data, err := yaml.Marshal(sanitizedConfig(cfg))
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return err
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	if cfg.Output.Directory != "" {
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			ui.PrintError("Cannot create output directory", err.Error())
			return err
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			ui.PrintError("Cannot create log directory", err.Error())
			return err
		}
	}

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(ui.Out, "  - %s\n", w)
		}
		fmt.Fprintln(ui.Out)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Out, "\nConfiguration summary:")
	fmt.Fprintf(ui.Out, "  Keywords: %d, companies: %d\n", len(cfg.Search.Keywords), len(cfg.Search.Companies))
	fmt.Fprintf(ui.Out, "  Follower band: %d - %d\n", cfg.Followers.Min, cfg.Followers.Max)
	fmt.Fprintf(ui.Out, "  Pacing: %s + up to %s, %d requests per run\n", cfg.Pacing.BaseDelay, cfg.Pacing.Jitter, cfg.Pacing.MaxRequestsPerRun)
	fmt.Fprintf(ui.Out, "  Output: %s\n", cfg.CSVPath())
	fmt.Fprintf(ui.Out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}

// configWarnings lists legal settings that are likely to produce a poor or short run
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	planned := len(cfg.Search.Keywords) + len(cfg.Search.Companies)
	if cfg.Pacing.MaxRequestsPerRun > 0 && planned > cfg.Pacing.MaxRequestsPerRun {
		warnings = append(warnings, fmt.Sprintf("%d queries planned but only %d requests allowed per run", planned, cfg.Pacing.MaxRequestsPerRun))
	}
	if cfg.Browser.Fixtures == "" && cfg.Pacing.BaseDelay < 10*time.Second {
		warnings = append(warnings, fmt.Sprintf("base_delay %s is short for live searches", cfg.Pacing.BaseDelay))
	}
	if cfg.Pacing.MaxRequestsPerHour > 0 && cfg.Pacing.MaxRequestsPerHour < planned {
		warnings = append(warnings, fmt.Sprintf("hourly cap of %d will stretch the run over several hours", cfg.Pacing.MaxRequestsPerHour))
	}
	if cfg.Followers.AllowUnknown && cfg.Quality.MinCompleteness > 0.8 {
		warnings = append(warnings, "profiles with unknown followers cannot reach a min_completeness above 0.8")
	}
	return warnings
}

// sanitizedConfig returns a copy of cfg with connection secrets masked
func sanitizedConfig(cfg *config.Config) *config.Config {
	display := *cfg
	if display.Storage.RedisPassword != "" {
		display.Storage.RedisPassword = "***"
	}
	if display.Storage.PostgresDSN != "" {
		display.Storage.PostgresDSN = maskDSN(display.Storage.PostgresDSN)
	}
	return &display
}

// maskDSN hides the password of a connection URL
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
