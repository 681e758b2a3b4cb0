// Package cli provides the command-line interface for citypulse.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/registry"
	"github.com/raphaelgruber/citypulse/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	seedFlag   uint64
	scaleFlag  float64
	policyFlag string

	// Loaded in PersistentPreRunE
	cfg    config.Config
	policy *config.Policy
	logger *slog.Logger

	closeLog func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "citypulse",
	Short: "Smart-city control center simulation",
	Long: `Citypulse simulates the sensors of a smart city: recycling bins,
streetlights, crosswalks, homes and transit stations. Every module walks its
readings on a timer, classifies them into tiers, folds risk factors into a
stability score and raises deduplicated alerts.

Configuration is read from CITYPULSE_* environment variables; module numbers
come from an embedded YAML policy that a policy file can override.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seedFlag
		}
		if cmd.Flags().Changed("scale") {
			cfg.TimeScale = scaleFlag
		}
		if policyFlag != "" {
			cfg.PolicyFile = policyFlag
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		// The dashboard owns the terminal, so it logs to the file only.
		if cmd.Name() == "dashboard" {
			logger, closeLog = config.SetupFileLogger(cfg.LogFile, cfg.LogLevel)
		} else {
			logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		}
		slog.SetDefault(logger)

		var err error
		policy, err = cfg.Policy()
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newCity builds a city from the loaded config and policy.
func newCity() (*service.CityService, error) {
	city, err := service.New(service.Options{
		Policy:    policy,
		Seed:      cfg.Seed,
		TimeScale: cfg.TimeScale,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build city: %w", err)
	}
	return city, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if errors.Is(err, registry.ErrNotFound) {
		return fmt.Errorf("%w (use the list command to see valid ids)", err)
	}
	return err
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().Uint64Var(&seedFlag, "seed", 0, "random seed (0 = time based, overrides CITYPULSE_SEED)")
	rootCmd.PersistentFlags().Float64Var(&scaleFlag, "scale", 1, "time scale divisor for every interval")
	rootCmd.PersistentFlags().StringVar(&policyFlag, "policy", "", "policy YAML file (overrides CITYPULSE_POLICY_FILE)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(homesCmd)
	rootCmd.AddCommand(stationsCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
}
