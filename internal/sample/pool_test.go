package sample

import (
	"context"
	"testing"

	"github.com/smc-ppi/sumd-core/internal/engine"
)

func roundParams(t *testing.T, seed string, numSamples int) RoundParams {
	t.Helper()
	return RoundParams{
		Round:      0,
		Seed:       seed,
		NumSamples: numSamples,
		GroupA:     groupA,
		GroupB:     groupB,
		EM:         engine.DefaultEMConfig(),
		MDFor: func(sampleID int) engine.Config {
			return engine.DefaultMDConfig(0.001, sampleID+1)
		},
		SimThresholdNm: 0.5,
		OutputDir:      t.TempDir(),
	}
}

func TestRunRoundFullBarrier(t *testing.T) {
	seed := writeSeed(t, t.TempDir(), 4.0)
	fake := &engine.Fake{Script: []engine.FakeCall{{Structure: seedContent(t, 3.0)}}}
	pool := NewPool(fake, 2)

	const numSamples = 6
	outcomes := pool.RunRound(context.Background(), roundParams(t, seed, numSamples))

	if len(outcomes) != numSamples {
		t.Fatalf("expected %d outcomes, got %d", numSamples, len(outcomes))
	}
	if fake.Calls() != numSamples {
		t.Fatalf("expected %d engine invocations, got %d", numSamples, fake.Calls())
	}
	for i, o := range outcomes {
		if o.SampleID != i {
			t.Fatalf("outcome %d carries sample id %d; slice must be ordered by id", i, o.SampleID)
		}
		if o.Failed() {
			t.Fatalf("sample %d failed: %s", i, o.Err)
		}
	}
}

func TestRunRoundIsolatesFailures(t *testing.T) {
	seed := writeSeed(t, t.TempDir(), 4.0)
	good := seedContent(t, 3.0)
	fake := &engine.Fake{Script: []engine.FakeCall{
		{Structure: good},
		{Fail: true},
		{Structure: good},
	}}
	// Dispatch order is unspecified, but exactly one scripted call fails
	// whichever sample draws it.
	pool := NewPool(fake, 1)

	outcomes := pool.RunRound(context.Background(), roundParams(t, seed, 3))

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly 1 failed outcome, got %d", failed)
	}
}

func TestRunRoundSeparateWorkdirs(t *testing.T) {
	seed := writeSeed(t, t.TempDir(), 4.0)
	fake := &engine.Fake{Script: []engine.FakeCall{{Structure: seedContent(t, 3.0)}}}
	pool := NewPool(fake, 4)

	outcomes := pool.RunRound(context.Background(), roundParams(t, seed, 4))

	seen := make(map[string]bool)
	for _, o := range outcomes {
		if o.Failed() {
			t.Fatalf("sample %d failed: %s", o.SampleID, o.Err)
		}
		if seen[o.FinalStructure] {
			t.Fatalf("two samples share the output file %s", o.FinalStructure)
		}
		seen[o.FinalStructure] = true
	}
}

func TestNewPoolDefaultsWorkers(t *testing.T) {
	pool := NewPool(&engine.Fake{}, 0)
	if pool.Workers <= 0 {
		t.Fatalf("expected positive default worker count, got %d", pool.Workers)
	}
}
