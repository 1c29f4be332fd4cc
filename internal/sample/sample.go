// Package sample runs one candidate evaluation per seed: measure the seed
// separation, decide whether a dynamics segment is warranted, invoke the
// engine, measure again. A round fans several samples out in parallel and
// joins on the full set.
package sample

import (
	"context"
	"math"
	"time"

	"github.com/smc-ppi/sumd-core/internal/engine"
	"github.com/smc-ppi/sumd-core/internal/geometry"
	"github.com/smc-ppi/sumd-core/internal/structure"
	"github.com/smc-ppi/sumd-core/pkg/logger"
)

// Status classifies a sample outcome.
type Status string

const (
	StatusOK           Status = "ok"
	StatusEngineFailed Status = "engine_failed"
)

// Request is the immutable input record of one sample evaluation.
type Request struct {
	Round    int
	SampleID int
	// Seed is the structure file the sample starts from.
	Seed   string
	GroupA geometry.GroupSpec
	GroupB geometry.GroupSpec
	EM     engine.Config
	MD     engine.Config
	// SimThresholdNm is the simulation-branch threshold, already normalized
	// to nanometers. Seeds at or below it get a dynamics segment.
	SimThresholdNm float64
	// Reference carries the run input's chain assignment. Engine outputs are
	// .gro files without a chain column, so chain-based selections against
	// them (and against .gro seeds advanced from a previous round) adopt the
	// reference's chains by atom position. Nil disables adoption.
	Reference *structure.Snapshot
	Workdir   string
	// Timeout bounds the sample's wall clock; zero means no limit.
	Timeout time.Duration
}

// Outcome is the immutable result record of one sample evaluation. Distances
// are nanometers; PostMDDistance is NaN when no dynamics segment ran, and all
// distances of a failed sample are +Inf so it never wins ranking.
type Outcome struct {
	SampleID        int           `yaml:"sample_id"`
	Seed            string        `yaml:"seed"`
	InitialDistance float64       `yaml:"initial_distance_nm"`
	Mode            engine.Mode   `yaml:"-"`
	ModeName        string        `yaml:"mode"`
	PostEMDistance  float64       `yaml:"post_em_distance_nm"`
	PostMDDistance  float64       `yaml:"post_md_distance_nm,omitempty"`
	FinalDistance   float64       `yaml:"final_distance_nm"`
	FinalStructure  string        `yaml:"final_structure,omitempty"`
	Trajectory      string        `yaml:"trajectory,omitempty"`
	Status          Status        `yaml:"status"`
	Err             string        `yaml:"error,omitempty"`
	Elapsed         time.Duration `yaml:"elapsed"`
}

// Failed reports whether the sample failed.
func (o Outcome) Failed() bool {
	return o.Status != StatusOK
}

// Evaluate runs the full evaluation of one candidate. Engine and structure
// failures are absorbed into an engine_failed outcome instead of propagating,
// so one bad sample never aborts a round that still has viable peers.
// Selection failures on the seed are also absorbed here; the controller
// validates the selections against the run input before round zero, so a
// failure at this point means a corrupt engine output, not a bad group spec.
func Evaluate(ctx context.Context, req Request, runner engine.Runner) Outcome {
	start := time.Now()
	log := logger.With("round", req.Round, "sample", req.SampleID)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	initial, err := req.measure(req.Seed)
	if err != nil {
		log.Warn("seed distance failed", "error", err)
		return failedOutcome(req, err, start)
	}

	mode := engine.ModeEM
	if initial <= req.SimThresholdNm {
		mode = engine.ModeEMThenMD
	}
	log.Info("sample start", "initial_distance_nm", initial, "mode", mode.String())

	result, err := runner.Run(ctx, mode, req.Seed, req.EM, req.MD, req.Workdir)
	if err != nil {
		log.Warn("engine failed", "mode", mode.String(), "error", err)
		out := failedOutcome(req, err, start)
		out.InitialDistance = initial
		out.Mode = mode
		out.ModeName = mode.String()
		return out
	}

	// The post-EM distance is recomputed from the minimized structure file
	// rather than taken from the engine's own log output.
	postEM, err := req.measure(result.MinimizedStructure)
	if err != nil {
		log.Warn("post-EM distance failed", "error", err)
		out := failedOutcome(req, err, start)
		out.InitialDistance = initial
		out.Mode = mode
		out.ModeName = mode.String()
		return out
	}

	out := Outcome{
		SampleID:        req.SampleID,
		Seed:            req.Seed,
		InitialDistance: initial,
		Mode:            mode,
		ModeName:        mode.String(),
		PostEMDistance:  postEM,
		PostMDDistance:  math.NaN(),
		FinalDistance:   postEM,
		FinalStructure:  result.FinalStructure,
		Status:          StatusOK,
		Elapsed:         time.Since(start),
	}

	if mode == engine.ModeEMThenMD {
		postMD, err := req.measure(result.FinalStructure)
		if err != nil {
			log.Warn("post-MD distance failed", "error", err)
			fo := failedOutcome(req, err, start)
			fo.InitialDistance = initial
			fo.Mode = mode
			fo.ModeName = mode.String()
			return fo
		}
		out.PostMDDistance = postMD
		out.FinalDistance = postMD
		out.Trajectory = result.Trajectory
		out.Elapsed = time.Since(start)
	}

	log.Info("sample done",
		"mode", mode.String(),
		"initial_distance_nm", out.InitialDistance,
		"final_distance_nm", out.FinalDistance,
		"elapsed", out.Elapsed,
	)
	return out
}

// measure reads a structure file and computes the group distance, restoring
// the reference chain assignment first when the file carries none.
func (req Request) measure(path string) (float64, error) {
	snap, err := structure.Read(path)
	if err != nil {
		return 0, err
	}
	snap.AdoptChainIDs(req.Reference)
	return geometry.Distance(snap, req.GroupA, req.GroupB)
}

func failedOutcome(req Request, err error, start time.Time) Outcome {
	inf := math.Inf(1)
	return Outcome{
		SampleID:        req.SampleID,
		Seed:            req.Seed,
		InitialDistance: inf,
		PostEMDistance:  inf,
		PostMDDistance:  inf,
		FinalDistance:   inf,
		Status:          StatusEngineFailed,
		Err:             err.Error(),
		Elapsed:         time.Since(start),
	}
}
