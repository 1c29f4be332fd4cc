package sample

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/smc-ppi/sumd-core/internal/engine"
	"github.com/smc-ppi/sumd-core/internal/geometry"
	"github.com/smc-ppi/sumd-core/internal/structure"
	"github.com/smc-ppi/sumd-core/pkg/utils"
)

// Pool fans sample evaluations out per round. Parallelism is bounded by
// Workers; each sample owns a private working directory derived from
// (round, sample id), so dispatch order does not matter and result order is
// fixed by sample id.
type Pool struct {
	Runner  engine.Runner
	Workers int
}

// NewPool returns a pool bound to the given runner. workers <= 0 defaults to
// the host's processing-unit count.
func NewPool(runner engine.Runner, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{Runner: runner, Workers: workers}
}

// RoundParams carries the per-round invariants shared by all samples.
type RoundParams struct {
	Round          int
	Seed           string
	NumSamples     int
	GroupA         geometry.GroupSpec
	GroupB         geometry.GroupSpec
	EM             engine.Config
	MDFor          func(sampleID int) engine.Config
	SimThresholdNm float64
	// Reference restores chain IDs on chainless engine outputs, see
	// Request.Reference.
	Reference     *structure.Snapshot
	OutputDir     string
	SampleTimeout time.Duration
}

// RunRound evaluates NumSamples candidates from the seed and blocks until
// every outcome is available. This is a full-barrier join: ranking needs the
// complete set, so there is no early exit on first success, and a sample's
// failure never cancels its peers. The returned slice is ordered by sample id.
func (p *Pool) RunRound(ctx context.Context, params RoundParams) []Outcome {
	outcomes := make([]Outcome, params.NumSamples)
	sem := make(chan struct{}, p.Workers)
	var wg sync.WaitGroup

	for i := 0; i < params.NumSamples; i++ {
		wg.Add(1)
		go func(sampleID int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			md := engine.Config{}
			if params.MDFor != nil {
				md = params.MDFor(sampleID)
			}
			req := Request{
				Round:          params.Round,
				SampleID:       sampleID,
				Seed:           params.Seed,
				GroupA:         params.GroupA,
				GroupB:         params.GroupB,
				EM:             params.EM,
				MD:             md,
				SimThresholdNm: params.SimThresholdNm,
				Reference:      params.Reference,
				Workdir:        filepath.Join(params.OutputDir, utils.SampleDirName(params.Round, sampleID)),
				Timeout:        params.SampleTimeout,
			}
			outcomes[sampleID] = Evaluate(ctx, req, p.Runner)
		}(i)
	}

	wg.Wait()
	return outcomes
}
