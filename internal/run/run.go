// Package run drives the round loop: fan samples out, rank, advance the best
// candidate as the next seed, stop on convergence or the round budget.
package run

import (
	"fmt"

	"github.com/smc-ppi/sumd-core/internal/sample"
)

// Status is the run-level state. A run starts running and ends in exactly one
// of the three terminal states; once terminal, no further rounds execute.
type Status string

const (
	StatusRunning         Status = "running"
	StatusConverged       Status = "converged"
	StatusBudgetExhausted Status = "budget_exhausted"
	StatusFailed          Status = "failed"
)

// Terminal reports whether the status ends the run.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// RoundRecord is the closed record of one round. It is never mutated after
// the round closes.
type RoundRecord struct {
	Index     int
	Seed      string
	Outcomes  []sample.Outcome
	Best      *sample.Outcome
	Converged bool
}

// Result is the terminal summary of a run.
type Result struct {
	RunID          string
	Status         Status
	FinalStructure string
	FinalDistance  float64
	Rounds         []RoundRecord
}

// AllFailedError reports a round in which every sample failed, leaving no
// viable candidate to advance.
type AllFailedError struct {
	Round int
}

func (e *AllFailedError) Error() string {
	return fmt.Sprintf("round %d: all samples failed", e.Round)
}
