package main

import (
	"fmt"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/report"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/topology"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/utils"
	"github.com/spf13/cobra"
)

func newTopologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Generate a topology and report its degree statistics",
		Long: `Grow a Barabasi-Albert graph without touching a ledger and write the
node degrees and the degree distribution. With --out empty only the
statistics are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			setupLogger(cmd, cfg)

			users := cfg.Network.Users
			if cmd.Flags().Changed("users") {
				users, _ = cmd.Flags().GetInt("users")
			}
			m := cfg.Network.Attachment
			if cmd.Flags().Changed("m") {
				m, _ = cmd.Flags().GetInt("m")
			}
			seed := cfg.Seed
			if cmd.Flags().Changed("seed") {
				seed, _ = cmd.Flags().GetInt64("seed")
			}

			rng := utils.NewRandSource(seed)
			graph, err := topology.Generate(users, m, rng)
			if err != nil {
				return err
			}
			if err := graph.Validate(); err != nil {
				return err
			}
			dist := graph.DegreeDistribution()
			logger.Info("Topology generated",
				"seed", rng.Seed(),
				"nodes", graph.N,
				"edges", len(graph.Edges),
				"degraded", len(graph.Degraded))

			if out, _ := cmd.Flags().GetString("out"); out != "" {
				if err := report.PrepareDir(out, false); err != nil {
					return err
				}
				w := report.NewWriter(out)
				if _, err := w.WriteDegrees(graph.Degrees); err != nil {
					return err
				}
				if _, err := w.WriteDistribution(dist); err != nil {
					return err
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"seed":         rng.Seed(),
					"nodes":        graph.N,
					"edges":        len(graph.Edges),
					"max_degree":   dist.MaxDegree(),
					"distribution": dist.Points(),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seed:       %d\n", rng.Seed())
			fmt.Fprintf(out, "nodes:      %d\n", graph.N)
			fmt.Fprintf(out, "edges:      %d (max %d)\n", len(graph.Edges), topology.MaxEdges(graph.N, graph.M))
			fmt.Fprintf(out, "max degree: %d\n", dist.MaxDegree())
			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "random seed (0 picks one from the clock)")
	cmd.Flags().Int("users", 0, "number of nodes")
	cmd.Flags().Int("m", 0, "edges attached per new node")
	cmd.Flags().String("out", "", "directory for the degree artifacts")

	return cmd
}
