package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paysim",
		Short: "Payment channel network simulator",
		Long: `paysim grows a scale-free network of payment channels on a ledger and
measures how often unit transfers between random users find a route.

Results are written to the output directory as CSV and JSON artifacts.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (defaults are used when empty)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newTopologyCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				_ = writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "paysim version %s\n", version)
			}
		},
	}
}

// loadConfig reads --config (or the defaults) and applies --log-level. The
// caller applies its own overrides and validates.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

func setupLogger(cmd *cobra.Command, cfg *config.Config) {
	logger.SetDefault(logger.NewFormat(cfg.LogFormat, cfg.LogLevel, cmd.ErrOrStderr()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
