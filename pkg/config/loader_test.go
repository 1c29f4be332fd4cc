package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smc-ppi/sumd-core/internal/geometry"
)

func validConfig() *RunConfig {
	cfg := DefaultRunConfig()
	cfg.Input = "seed.pdb"
	cfg.GroupA = geometry.GroupSpec{Name: "a", ChainID: "A"}
	cfg.GroupB = geometry.GroupSpec{Name: "b", ChainID: "B"}
	return cfg
}

func TestDefaultRunConfig(t *testing.T) {
	cfg := DefaultRunConfig()
	if cfg.DistanceThresholdNm != 0.5 {
		t.Fatalf("unexpected convergence threshold: %v", cfg.DistanceThresholdNm)
	}
	if cfg.SimulationThresholdAngstrom != 5.0 {
		t.Fatalf("unexpected simulation threshold: %v", cfg.SimulationThresholdAngstrom)
	}
	if cfg.NumSamples != 5 || cfg.MaxIterations != 10 || cfg.ArchiveSize != 5 {
		t.Fatalf("unexpected loop defaults: %+v", cfg)
	}
	if cfg.Engine.Binary != "gmx" {
		t.Fatalf("unexpected engine binary: %s", cfg.Engine.Binary)
	}
	if len(cfg.Engine.ForceFields) == 0 {
		t.Fatalf("expected a force-field fallback list")
	}
}

func TestSimThresholdNm(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.SimulationThresholdAngstrom = 7.5
	if got := cfg.SimThresholdNm(); got != 0.75 {
		t.Fatalf("expected 0.75 nm, got %v", got)
	}
}

func TestLoadRunConfig(t *testing.T) {
	content := `
input: complex.pdb
distance_threshold_nm: 0.4
simulation_threshold_angstrom: 6.0
num_samples: 8
max_iterations: 20
group_a:
  name: receptor
  chain: A
group_b:
  name: ligand
  chain: B
  residues: [10, 11, 12]
engine:
  topology: topol.top
  binary: gmx_mpi
`
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("LoadRunConfig failed: %v", err)
	}
	if cfg.Input != "complex.pdb" || cfg.NumSamples != 8 || cfg.MaxIterations != 20 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.DistanceThresholdNm != 0.4 || cfg.SimulationThresholdAngstrom != 6.0 {
		t.Fatalf("thresholds not applied: %+v", cfg)
	}
	if cfg.GroupB.ChainID != "B" || len(cfg.GroupB.Residues) != 3 {
		t.Fatalf("group spec not applied: %+v", cfg.GroupB)
	}
	if cfg.Engine.Binary != "gmx_mpi" || cfg.Engine.Topology != "topol.top" {
		t.Fatalf("engine config not applied: %+v", cfg.Engine)
	}
	// unset fields keep their defaults
	if cfg.ArchiveSize != 5 || cfg.LogLevel != "info" {
		t.Fatalf("defaults lost on load: %+v", cfg)
	}
}

func TestLoadRunConfigErrors(t *testing.T) {
	if _, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("input: [unterminated"), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	if _, err := LoadRunConfig(path); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		field  string
		mutate func(*RunConfig)
	}{
		{"missing input", "input", func(c *RunConfig) { c.Input = "" }},
		{"zero threshold", "distance_threshold_nm", func(c *RunConfig) { c.DistanceThresholdNm = 0 }},
		{"negative sim threshold", "simulation_threshold_angstrom", func(c *RunConfig) { c.SimulationThresholdAngstrom = -1 }},
		{"zero samples", "num_samples", func(c *RunConfig) { c.NumSamples = 0 }},
		{"zero sim time", "simulation_time_ns", func(c *RunConfig) { c.SimulationTimeNs = 0 }},
		{"zero iterations", "max_iterations", func(c *RunConfig) { c.MaxIterations = 0 }},
		{"negative workers", "max_workers", func(c *RunConfig) { c.MaxWorkers = -1 }},
		{"negative timeout", "sample_timeout", func(c *RunConfig) { c.SampleTimeout = -time.Second }},
		{"zero archive", "archive_size", func(c *RunConfig) { c.ArchiveSize = 0 }},
		{"missing output dir", "output_dir", func(c *RunConfig) { c.OutputDir = "" }},
		{"empty group", "group_a", func(c *RunConfig) { c.GroupA = geometry.GroupSpec{Name: "a"} }},
		{"bad residue", "group_b", func(c *RunConfig) { c.GroupB.Residues = []int{-4} }},
		{"bad log level", "log_level", func(c *RunConfig) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Fatalf("expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}
}
