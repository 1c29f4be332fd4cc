// Package batch runs the supervised sampling loop over a set of input
// structures. Items are independent: one failing run is recorded and the
// rest continue.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smc-ppi/sumd-core/internal/engine"
	"github.com/smc-ppi/sumd-core/internal/run"
	"github.com/smc-ppi/sumd-core/pkg/config"
	"github.com/smc-ppi/sumd-core/pkg/logger"
	"github.com/smc-ppi/sumd-core/pkg/store"
)

// Item is one structure to process.
type Item struct {
	ID    string // assigned if empty
	Input string
}

// ItemResult pairs an item with the outcome of its run. Err is set when the
// run could not finish; Result is set otherwise.
type ItemResult struct {
	Item   Item
	Result *run.Result
	Err    error
}

// Driver fans a batch out over a bounded number of concurrent runs. Each
// item gets its own output directory under OutputDir and, if it fails, an
// error.txt describing why.
type Driver struct {
	Base        *config.RunConfig // template; Input and OutputDir are set per item
	OutputDir   string
	Parallelism int
	NewRunner   func(item Item) engine.Runner
	Store       *store.Store
}

// Run processes every item and returns one result per item, in item order.
// The returned error covers only driver-level problems; item failures live
// in their ItemResult.
func (d *Driver) Run(ctx context.Context, items []Item) ([]ItemResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("batch: no items")
	}
	if d.NewRunner == nil {
		return nil, fmt.Errorf("batch: no runner factory")
	}
	parallelism := d.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	if err := os.MkdirAll(d.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("batch output dir: %w", err)
	}

	results := make([]ItemResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, item := range items {
		if item.ID == "" {
			item.ID = itemID(item.Input)
		}
		results[i].Item = item

		i, item := i, item
		g.Go(func() error {
			res, err := d.runItem(gctx, item)
			results[i].Result = res
			results[i].Err = err
			if err != nil {
				logger.Error("batch item failed", "item", item.ID, "error", err)
				d.writeFailure(item, err)
			}
			// Item failures never abort the batch.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Driver) runItem(ctx context.Context, item Item) (*run.Result, error) {
	cfg := *d.Base
	cfg.Input = item.Input
	cfg.OutputDir = filepath.Join(d.OutputDir, item.ID)

	ctrl := run.NewController(&cfg, d.NewRunner(item), d.Store)
	logger.Info("batch item starting", "item", item.ID, "input", item.Input, "run_id", ctrl.RunID())
	return ctrl.Run(ctx)
}

// writeFailure leaves an error.txt in the item's output directory so a
// failed item is diagnosable long after the batch log scrolled away.
func (d *Driver) writeFailure(item Item, runErr error) {
	dir := filepath.Join(d.OutputDir, item.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	body := fmt.Sprintf("input: %s\nerror: %v\n", item.Input, runErr)
	if err := os.WriteFile(filepath.Join(dir, "error.txt"), []byte(body), 0o644); err != nil {
		logger.Warn("could not record item failure", "item", item.ID, "error", err)
	}
}

// itemID derives a stable, filesystem-safe identifier from the input file
// name, suffixed to stay unique across duplicate basenames.
func itemID(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	return base + "-" + uuid.NewString()[:8]
}
