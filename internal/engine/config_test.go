package engine

import (
	"strings"
	"testing"
)

func TestStepsFor(t *testing.T) {
	tests := []struct {
		ns   float64
		dtPs float64
		want int
	}{
		// 2 ns at 2 fs per step
		{2.0, 0.002, 1_000_000},
		{1.0, 0.002, 500_000},
		{100.0, 0.002, 50_000_000},
		// fractional segments keep their steps
		{0.5, 0.002, 250_000},
		{0.001, 0.002, 500},
		{0, 0.002, 0},
	}
	for _, tt := range tests {
		if got := StepsFor(tt.ns, tt.dtPs); got != tt.want {
			t.Fatalf("StepsFor(%v, %v) = %d, want %d", tt.ns, tt.dtPs, got, tt.want)
		}
	}
}

// parseMDP splits rendered parameter text into a key/value map so tests do
// not depend on column padding.
func parseMDP(t *testing.T, mdp string) map[string]string {
	t.Helper()
	params := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(mdp), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			t.Fatalf("malformed mdp line %q", line)
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return params
}

func TestDefaultEMConfigRender(t *testing.T) {
	params := parseMDP(t, DefaultEMConfig().RenderMDP())

	want := map[string]string{
		"integrator":  "steep",
		"nsteps":      "5000",
		"emtol":       "1000",
		"emstep":      "0.01",
		"coulombtype": "PME",
		"pbc":         "xyz",
	}
	for key, value := range want {
		if params[key] != value {
			t.Fatalf("expected %s = %s, got %q", key, value, params[key])
		}
	}
	for _, reject := range []string{"gen_vel", "tcoupl", "pcoupl", "dt"} {
		if _, ok := params[reject]; ok {
			t.Fatalf("EM parameters contain dynamics key %q", reject)
		}
	}
}

func TestDefaultMDConfigRender(t *testing.T) {
	params := parseMDP(t, DefaultMDConfig(2.0, 42).RenderMDP())

	want := map[string]string{
		"integrator":           "md",
		"nsteps":               "1000000",
		"dt":                   "0.002",
		"gen_vel":              "yes",
		"gen_seed":             "42",
		"tcoupl":               "V-rescale",
		"pcoupl":               "Parrinello-Rahman",
		"constraint_algorithm": "lincs",
		"constraints":          "all-bonds",
		"nstlist":              "10",
		"DispCorr":             "EnerPres",
		"pbc":                  "xyz",
	}
	for key, value := range want {
		if params[key] != value {
			t.Fatalf("expected %s = %s, got %q", key, value, params[key])
		}
	}
	if _, ok := params["emtol"]; ok {
		t.Fatalf("MD parameters contain minimization key emtol")
	}
}

func TestDefaultMDConfigSeedVaries(t *testing.T) {
	a := DefaultMDConfig(1.0, 1)
	b := DefaultMDConfig(1.0, 2)
	if a.GenSeed == b.GenSeed {
		t.Fatalf("expected distinct velocity seeds")
	}
	if a.Steps != b.Steps {
		t.Fatalf("seed must not change step count")
	}
}

func TestDefaultMDConfigFractionalSegment(t *testing.T) {
	cfg := DefaultMDConfig(0.5, 1)
	if cfg.Steps != 250_000 {
		t.Fatalf("0.5 ns segment: expected 250000 steps, got %d", cfg.Steps)
	}
}

func TestModeString(t *testing.T) {
	if ModeEM.String() != "EM_only" {
		t.Fatalf("unexpected ModeEM string: %s", ModeEM.String())
	}
	if ModeEMThenMD.String() != "EM+MD" {
		t.Fatalf("unexpected ModeEMThenMD string: %s", ModeEMThenMD.String())
	}
}
