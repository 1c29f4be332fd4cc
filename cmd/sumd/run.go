package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smc-ppi/sumd-core/internal/engine"
	"github.com/smc-ppi/sumd-core/internal/run"
	"github.com/smc-ppi/sumd-core/pkg/config"
	"github.com/smc-ppi/sumd-core/pkg/logger"
	"github.com/smc-ppi/sumd-core/pkg/store"
)

var (
	runConfigPath string
	runInput      string
	runTopology   string
	runOutputDir  string
	runStorePath  string

	runGroupAChain    string
	runGroupAResidues string
	runGroupBChain    string
	runGroupBResidues string

	runThresholdNm    float64
	runSimThresholdA  float64
	runNumSamples     int
	runSimTimeNs      float64
	runMaxIterations  int
	runMaxWorkers     int
	runEngineBinary   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervised sampling loop on one structure",
	Long: `Runs the supervised loop until the centroid distance between the two
groups drops to the convergence threshold, the iteration budget is spent,
or a whole round fails. On success the final structure and distance are
printed as a SUMD_RESULT line for downstream scripting.`,
	RunE: runLoop,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "YAML run configuration")
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "Starting structure (.pdb or .gro)")
	runCmd.Flags().StringVarP(&runTopology, "topology", "p", "", "System topology file")
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "Output directory")
	runCmd.Flags().StringVar(&runStorePath, "store", "", "Optional sqlite run-history database")

	runCmd.Flags().StringVar(&runGroupAChain, "group-a-chain", "", "Chain ID of group A")
	runCmd.Flags().StringVar(&runGroupAResidues, "group-a-residues", "", "Residue numbers of group A (comma separated)")
	runCmd.Flags().StringVar(&runGroupBChain, "group-b-chain", "", "Chain ID of group B")
	runCmd.Flags().StringVar(&runGroupBResidues, "group-b-residues", "", "Residue numbers of group B (comma separated)")

	runCmd.Flags().Float64Var(&runThresholdNm, "threshold", 0, "Convergence threshold in nm")
	runCmd.Flags().Float64Var(&runSimThresholdA, "sim-threshold", 0, "Simulation-branch threshold in Å")
	runCmd.Flags().IntVar(&runNumSamples, "samples", 0, "Candidates per round")
	runCmd.Flags().Float64Var(&runSimTimeNs, "sim-time", 0, "Dynamics segment length in ns")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "Round budget")
	runCmd.Flags().IntVar(&runMaxWorkers, "workers", 0, "Concurrent sample evaluations (0 = all cores)")
	runCmd.Flags().StringVar(&runEngineBinary, "engine", "", "Engine binary (default gmx)")

	rootCmd.AddCommand(runCmd)
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	log, closer, err := logger.NewRunLogger(cfg.LogLevel, filepath.Join(cfg.OutputDir, "run.log"))
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.SetDefault(log)

	var db *store.Store
	if cfg.StorePath != "" {
		db = store.New(cfg.StorePath)
		if err := db.Init(cmd.Context()); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		defer db.Close()
	}

	gmx := engine.NewGromacs(cfg.Engine.Topology)
	if cfg.Engine.Binary != "" {
		gmx.Binary = cfg.Engine.Binary
	}
	gmx.Extra = cfg.Engine.Extra
	if cfg.Engine.MaxWarn > 0 {
		gmx.MaxWarn = cfg.Engine.MaxWarn
	}

	ctrl := run.NewController(cfg, gmx, db)
	result, err := ctrl.Run(cmd.Context())
	if err != nil {
		return err
	}

	switch result.Status {
	case run.StatusConverged:
		logger.Info("run converged",
			"run_id", result.RunID, "rounds", len(result.Rounds), "distance_nm", result.FinalDistance)
	case run.StatusBudgetExhausted:
		logger.Info("iteration budget spent",
			"run_id", result.RunID, "rounds", len(result.Rounds), "distance_nm", result.FinalDistance)
	}

	// Stable machine-readable result line for wrapper scripts.
	fmt.Printf("SUMD_RESULT:%s:%g\n", result.FinalStructure, result.FinalDistance)
	return nil
}

// buildRunConfig layers CLI flags over the optional YAML file over defaults.
func buildRunConfig() (*config.RunConfig, error) {
	var cfg *config.RunConfig
	var err error
	if runConfigPath != "" {
		cfg, err = config.LoadRunConfig(runConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultRunConfig()
	}

	if runInput != "" {
		cfg.Input = runInput
	}
	if runTopology != "" {
		cfg.Engine.Topology = runTopology
	}
	if runOutputDir != "" {
		cfg.OutputDir = runOutputDir
	}
	if runStorePath != "" {
		cfg.StorePath = runStorePath
	}
	if runEngineBinary != "" {
		cfg.Engine.Binary = runEngineBinary
	}
	if runThresholdNm > 0 {
		cfg.DistanceThresholdNm = runThresholdNm
	}
	if runSimThresholdA > 0 {
		cfg.SimulationThresholdAngstrom = runSimThresholdA
	}
	if runNumSamples > 0 {
		cfg.NumSamples = runNumSamples
	}
	if runSimTimeNs > 0 {
		cfg.SimulationTimeNs = runSimTimeNs
	}
	if runMaxIterations > 0 {
		cfg.MaxIterations = runMaxIterations
	}
	if runMaxWorkers > 0 {
		cfg.MaxWorkers = runMaxWorkers
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if runGroupAChain != "" {
		cfg.GroupA.Name = "group_a"
		cfg.GroupA.ChainID = runGroupAChain
		if cfg.GroupA.Residues, err = parseResidues(runGroupAResidues); err != nil {
			return nil, fmt.Errorf("--group-a-residues: %w", err)
		}
	}
	if runGroupBChain != "" {
		cfg.GroupB.Name = "group_b"
		cfg.GroupB.ChainID = runGroupBChain
		if cfg.GroupB.Residues, err = parseResidues(runGroupBResidues); err != nil {
			return nil, fmt.Errorf("--group-b-residues: %w", err)
		}
	}
	return cfg, nil
}

func parseResidues(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid residue number %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
