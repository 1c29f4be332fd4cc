package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smc-ppi/sumd-core/internal/batch"
	"github.com/smc-ppi/sumd-core/internal/engine"
	"github.com/smc-ppi/sumd-core/pkg/config"
	"github.com/smc-ppi/sumd-core/pkg/logger"
	"github.com/smc-ppi/sumd-core/pkg/store"
)

var (
	batchConfigPath  string
	batchInputDir    string
	batchOutputDir   string
	batchParallelism int
	batchStorePath   string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the sampling loop over every structure in a directory",
	Long: `Scans the input directory for .pdb and .gro files and runs the
supervised loop for each one. Items run concurrently up to the parallelism
limit; a failing item leaves an error.txt in its output directory and the
rest of the batch continues.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchConfigPath, "config", "c", "", "YAML run configuration shared by all items (required)")
	batchCmd.Flags().StringVar(&batchInputDir, "input-dir", "", "Directory of input structures (required)")
	batchCmd.Flags().StringVarP(&batchOutputDir, "output", "o", "sumd_batch", "Batch output directory")
	batchCmd.Flags().IntVar(&batchParallelism, "parallel", 1, "Concurrent items")
	batchCmd.Flags().StringVar(&batchStorePath, "store", "", "Optional sqlite run-history database")

	batchCmd.MarkFlagRequired("config")
	batchCmd.MarkFlagRequired("input-dir")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	base, err := config.LoadRunConfig(batchConfigPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		base.LogLevel = logLevel
	}

	items, err := collectItems(batchInputDir)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("no .pdb or .gro files in %s", batchInputDir)
	}
	logger.Info("batch starting", "items", len(items), "parallel", batchParallelism)

	var db *store.Store
	if batchStorePath != "" {
		db = store.New(batchStorePath)
		if err := db.Init(cmd.Context()); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		defer db.Close()
	}

	driver := &batch.Driver{
		Base:        base,
		OutputDir:   batchOutputDir,
		Parallelism: batchParallelism,
		Store:       db,
		NewRunner: func(item batch.Item) engine.Runner {
			gmx := engine.NewGromacs(base.Engine.Topology)
			if base.Engine.Binary != "" {
				gmx.Binary = base.Engine.Binary
			}
			gmx.Extra = base.Engine.Extra
			if base.Engine.MaxWarn > 0 {
				gmx.MaxWarn = base.Engine.MaxWarn
			}
			return gmx
		},
	}

	results, err := driver.Run(cmd.Context(), items)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		fmt.Printf("SUMD_RESULT:%s:%g\n", r.Result.FinalStructure, r.Result.FinalDistance)
	}
	logger.Info("batch finished", "items", len(results), "failed", failed)
	if failed == len(results) {
		return fmt.Errorf("all %d batch items failed", failed)
	}
	return nil
}

func collectItems(dir string) ([]batch.Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("input dir: %w", err)
	}
	var items []batch.Item
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdb", ".gro":
			items = append(items, batch.Item{Input: filepath.Join(dir, e.Name())})
		}
	}
	return items, nil
}
