package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger/ledgerrpc"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/report"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/simulation"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/utils"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build a channel network and measure the transfer success ratio",
		Long: `Create the users, grow the Barabasi-Albert topology, open a channel per
edge and drive random unit transfers, recording the running success ratio
every --interval trials.

Flags override the values read from --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			setupLogger(cmd, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := runSimulation(ctx, cfg)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), report.Summary{Seed: res.Seed, RunSummary: res.Summary()})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seed:          %d\n", res.Seed)
			fmt.Fprintf(out, "users:         %d\n", res.Users)
			fmt.Fprintf(out, "edges:         %d\n", len(res.Graph.Edges))
			fmt.Fprintf(out, "channels:      %d opened, %d failed\n", res.Channels.Opened, res.Channels.Failed)
			summary := res.Summary()
			fmt.Fprintf(out, "capacity:      mean %v, stddev %v, range [%v, %v]\n",
				utils.Round(summary.CapacityMean, 3), utils.Round(summary.CapacityStdDev, 3),
				utils.Round(summary.CapacityMin, 3), utils.Round(summary.CapacityMax, 3))
			fmt.Fprintf(out, "success ratio: %.4f (%d/%d)\n", res.SuccessRatio(), res.Successes, res.Trials)
			for i, trial := range res.Series.Checkpoints() {
				fmt.Fprintf(out, "  after %6d trials: %.4f\n", trial, res.Series.Ratios[i])
			}
			fmt.Fprintf(out, "artifacts:     %s\n", cfg.Output.Dir)
			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "random seed (0 picks one from the clock)")
	cmd.Flags().Int("users", 0, "number of users")
	cmd.Flags().Int("m", 0, "edges attached per new user")
	cmd.Flags().Int("trials", 0, "number of transfer trials")
	cmd.Flags().Int("interval", 0, "trials between success ratio checkpoints")
	cmd.Flags().String("ledger-addr", "", "address of a remote ledger service (in-memory when empty)")
	cmd.Flags().String("out", "", "output directory for report artifacts")
	cmd.Flags().Bool("clean", true, "empty the output directory before the run")

	return cmd
}

// applyRunFlags overlays the flags the user set explicitly
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("seed") {
		if cfg.Seed, err = flags.GetInt64("seed"); err != nil {
			return err
		}
	}
	if flags.Changed("users") {
		if cfg.Network.Users, err = flags.GetInt("users"); err != nil {
			return err
		}
	}
	if flags.Changed("m") {
		if cfg.Network.Attachment, err = flags.GetInt("m"); err != nil {
			return err
		}
	}
	if flags.Changed("trials") {
		if cfg.Simulation.Trials, err = flags.GetInt("trials"); err != nil {
			return err
		}
	}
	if flags.Changed("interval") {
		if cfg.Simulation.CheckpointInterval, err = flags.GetInt("interval"); err != nil {
			return err
		}
	}
	if flags.Changed("ledger-addr") {
		addr, _ := flags.GetString("ledger-addr")
		cfg.Ledger.Backend = config.LedgerBackendGRPC
		cfg.Ledger.Address = addr
	}
	if flags.Changed("out") {
		cfg.Output.Dir, _ = flags.GetString("out")
	}
	if flags.Changed("clean") {
		cfg.Output.Clean, _ = flags.GetBool("clean")
	}
	return nil
}

// runSimulation resets the workspace, runs cfg against the configured ledger
// and writes the report artifacts.
func runSimulation(ctx context.Context, cfg *config.Config) (*simulation.Result, error) {
	if err := report.PrepareDir(cfg.Output.Dir, cfg.Output.Clean); err != nil {
		return nil, err
	}

	l, release, err := ledgerrpc.Open(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() {
		if err := release(); err != nil {
			logger.Warn("failed to release ledger", "error", err)
		}
	}()

	collector := metrics.NewCollector()
	res, err := simulation.NewRunner(l).
		WithLogger(logger.Default).
		WithCollector(collector).
		Run(ctx, cfg)
	if err != nil {
		if res != nil {
			logger.Warn("Run interrupted, writing partial reports", "trials", res.Trials, "error", err)
			if werr := writeReports(cfg, res); werr != nil {
				logger.Error("failed to write partial reports", "error", werr)
			}
		}
		return res, fmt.Errorf("run failed: %w", err)
	}

	stats := metrics.SummarizeTransfers(collector)
	logger.Debug("Transfer statistics",
		"attempts", stats.Attempts,
		"successes", stats.Successes,
		"failures", stats.Failures)

	if err := writeReports(cfg, res); err != nil {
		return nil, err
	}
	return res, nil
}

func writeReports(cfg *config.Config, res *simulation.Result) error {
	w := report.NewWriter(cfg.Output.Dir)
	files, err := w.WriteResult(res)
	if err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	if _, err := w.WriteConfig(cfg); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	logger.Info("Reports written", "dir", cfg.Output.Dir, "files", len(files)+1)
	return nil
}
