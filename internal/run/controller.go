package run

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smc-ppi/sumd-core/internal/archive"
	"github.com/smc-ppi/sumd-core/internal/engine"
	"github.com/smc-ppi/sumd-core/internal/geometry"
	"github.com/smc-ppi/sumd-core/internal/sample"
	"github.com/smc-ppi/sumd-core/internal/structure"
	"github.com/smc-ppi/sumd-core/pkg/config"
	"github.com/smc-ppi/sumd-core/pkg/logger"
	"github.com/smc-ppi/sumd-core/pkg/store"
	"github.com/smc-ppi/sumd-core/pkg/utils"
)

// Controller owns the run state. All mutation happens at round boundaries on
// the controller's goroutine; workers only ever see immutable requests and
// return immutable outcomes.
type Controller struct {
	cfg   *config.RunConfig
	pool  *sample.Pool
	arch  *archive.Archive
	runID string
	db    *store.Store // optional

	currentSeed string
	// reference is the parsed input structure; it carries the chain
	// assignment that chainless engine outputs adopt for group selection.
	reference *structure.Snapshot
	history   []RoundRecord
	status    Status
}

// NewController builds a controller for one run. The store may be nil.
func NewController(cfg *config.RunConfig, runner engine.Runner, db *store.Store) *Controller {
	return &Controller{
		cfg:    cfg,
		pool:   sample.NewPool(runner, cfg.MaxWorkers),
		arch:   archive.New(cfg.ArchiveSize),
		runID:  utils.GenerateRunID(),
		db:     db,
		status: StatusRunning,
	}
}

// RunID returns the identifier assigned to this run.
func (c *Controller) RunID() string {
	return c.runID
}

// Run executes the loop to a terminal state. Configuration and selection
// errors abort before round zero; after that the run always terminates in one
// of the three terminal states with persisted artifacts.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if err := config.Validate(c.cfg); err != nil {
		return nil, err
	}
	if engine.StepsFor(c.cfg.SimulationTimeNs, engine.DefaultTimeStepPs) < 1 {
		return nil, &config.ConfigurationError{
			Field:  "simulation_time_ns",
			Reason: fmt.Sprintf("%g ns yields a zero-step dynamics segment", c.cfg.SimulationTimeNs),
		}
	}
	if err := c.checkSelections(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	if c.db != nil {
		if err := c.db.CreateRun(ctx, c.runID, c.cfg.Input, time.Now()); err != nil {
			logger.Warn("run store unavailable", "error", err)
			c.db = nil
		}
	}

	c.currentSeed = c.cfg.Input
	simThresholdNm := c.cfg.SimThresholdNm()

	logger.Info("run start",
		"run_id", c.runID,
		"input", c.cfg.Input,
		"distance_threshold_nm", c.cfg.DistanceThresholdNm,
		"simulation_threshold_angstrom", c.cfg.SimulationThresholdAngstrom,
		"num_samples", c.cfg.NumSamples,
		"max_iterations", c.cfg.MaxIterations,
		"workers", c.pool.Workers,
	)

	var runErr error
	var best sample.Outcome

	for round := 0; c.status == StatusRunning; round++ {
		record := c.runRound(ctx, round, simThresholdNm)
		c.history = append(c.history, record)

		if record.Best == nil {
			c.status = StatusFailed
			runErr = &AllFailedError{Round: round}
			break
		}
		best = *record.Best

		if c.db != nil {
			if err := c.db.RecordRound(ctx, c.runID, round, best.SampleID, best.FinalDistance, record.Converged); err != nil {
				logger.Warn("round record not stored", "round", round, "error", err)
			}
		}

		switch {
		case record.Converged:
			c.status = StatusConverged
		case round+1 >= c.cfg.MaxIterations:
			c.status = StatusBudgetExhausted
		default:
			// ownership of the winning structure transfers to the next round
			c.currentSeed = best.FinalStructure
		}
	}

	result := &Result{
		RunID:  c.runID,
		Status: c.status,
		Rounds: c.history,
	}
	if c.status != StatusFailed {
		result.FinalStructure = best.FinalStructure
		result.FinalDistance = best.FinalDistance
	} else {
		result.FinalDistance = math.Inf(1)
	}

	c.finalize(ctx, result)
	return result, runErr
}

// runRound evaluates one full round and closes its record.
func (c *Controller) runRound(ctx context.Context, round int, simThresholdNm float64) RoundRecord {
	logger.Info("round start", "round", round, "seed", c.currentSeed)

	mdNs := c.cfg.SimulationTimeNs
	outcomes := c.pool.RunRound(ctx, sample.RoundParams{
		Round:          round,
		Seed:           c.currentSeed,
		NumSamples:     c.cfg.NumSamples,
		GroupA:         c.cfg.GroupA,
		GroupB:         c.cfg.GroupB,
		EM:             engine.DefaultEMConfig(),
		MDFor: func(sampleID int) engine.Config {
			// distinct velocity seeds keep the samples independent
			return engine.DefaultMDConfig(mdNs, round*1000+sampleID+1)
		},
		SimThresholdNm: simThresholdNm,
		Reference:      c.reference,
		OutputDir:      c.cfg.OutputDir,
		SampleTimeout:  c.cfg.SampleTimeout,
	})

	record := RoundRecord{Index: round, Seed: c.currentSeed, Outcomes: outcomes}
	record.Best = selectBest(outcomes)

	for _, o := range outcomes {
		if o.Failed() {
			continue
		}
		c.arch.Offer(archive.Entry{
			Distance:       o.FinalDistance,
			Round:          round,
			SampleID:       o.SampleID,
			StructurePath:  o.FinalStructure,
			TrajectoryPath: o.Trajectory,
		})
	}

	if record.Best != nil {
		record.Converged = record.Best.FinalDistance <= c.cfg.DistanceThresholdNm
		logger.Info("round done",
			"round", round,
			"best_sample", record.Best.SampleID,
			"best_distance_nm", record.Best.FinalDistance,
			"mode", record.Best.ModeName,
			"converged", record.Converged,
		)
	} else {
		logger.Error("round done with no viable candidate", "round", round)
	}

	if err := c.writeRoundSummary(record); err != nil {
		logger.Warn("round summary not written", "round", round, "error", err)
	}
	return record
}

// selectBest picks the outcome with the lowest final distance among the
// non-failed ones. Outcomes are ordered by sample id, so a strict comparison
// breaks ties toward the lowest id.
func selectBest(outcomes []sample.Outcome) *sample.Outcome {
	var best *sample.Outcome
	for i := range outcomes {
		o := &outcomes[i]
		if o.Failed() {
			continue
		}
		if best == nil || o.FinalDistance < best.FinalDistance {
			best = o
		}
	}
	return best
}

// checkSelections resolves both groups against the input structure so an
// empty selection fails the run before any engine time is spent. The parsed
// input is retained as the chain reference for later rounds.
func (c *Controller) checkSelections() error {
	snap, err := structure.Read(c.cfg.Input)
	if err != nil {
		return err
	}
	if _, err := geometry.Select(snap, c.cfg.GroupA); err != nil {
		return err
	}
	if _, err := geometry.Select(snap, c.cfg.GroupB); err != nil {
		return err
	}
	c.reference = snap
	return nil
}

// roundSummary is the per-round YAML artifact, one per round directory.
type roundSummary struct {
	Round        int              `yaml:"round"`
	Seed         string           `yaml:"seed"`
	Samples      int              `yaml:"samples"`
	Succeeded    int              `yaml:"succeeded"`
	Failed       int              `yaml:"failed"`
	EMOnly       int              `yaml:"em_only"`
	EMThenMD     int              `yaml:"em_md"`
	BestSample   *int             `yaml:"best_sample,omitempty"`
	BestDistance *float64         `yaml:"best_distance_nm,omitempty"`
	Converged    bool             `yaml:"converged"`
	Outcomes     []sample.Outcome `yaml:"outcomes"`
}

func (c *Controller) writeRoundSummary(record RoundRecord) error {
	s := roundSummary{
		Round:     record.Index,
		Seed:      record.Seed,
		Samples:   len(record.Outcomes),
		Converged: record.Converged,
		Outcomes:  record.Outcomes,
	}
	for _, o := range record.Outcomes {
		if o.Failed() {
			s.Failed++
			continue
		}
		s.Succeeded++
		if o.Mode == engine.ModeEMThenMD {
			s.EMThenMD++
		} else {
			s.EMOnly++
		}
	}
	if record.Best != nil {
		s.BestSample = &record.Best.SampleID
		s.BestDistance = &record.Best.FinalDistance
	}

	dir := filepath.Join(c.cfg.OutputDir, utils.RoundDirName(record.Index))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "summary.yaml"), data, 0o644)
}

// finalize persists the archive and the terminal run record.
func (c *Controller) finalize(ctx context.Context, result *Result) {
	if err := c.arch.Persist(filepath.Join(c.cfg.OutputDir, "archive")); err != nil {
		logger.Warn("archive not persisted", "error", err)
	}
	if c.db != nil {
		rows := make([]store.ArchiveRow, 0, c.arch.Len())
		for i, e := range c.arch.Entries() {
			rows = append(rows, store.ArchiveRow{
				Rank:          i + 1,
				Distance:      e.Distance,
				Round:         e.Round,
				SampleID:      e.SampleID,
				StructurePath: e.StructurePath,
			})
		}
		if err := c.db.ReplaceArchive(ctx, c.runID, rows); err != nil {
			logger.Warn("archive not stored", "error", err)
		}
		if err := c.db.FinishRun(ctx, c.runID, string(result.Status), result.FinalDistance, time.Now()); err != nil {
			logger.Warn("run record not stored", "error", err)
		}
	}
	logger.Info("run done",
		"run_id", c.runID,
		"status", string(result.Status),
		"rounds", len(result.Rounds),
		"final_distance_nm", result.FinalDistance,
		"final_structure", result.FinalStructure,
	)
}
