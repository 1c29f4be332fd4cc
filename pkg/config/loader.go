package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigurationError reports an invalid run configuration. Validation runs
// before the first round, so these never surface mid-run.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// LoadRunConfig loads a run configuration file over the defaults. The result
// is not yet validated; callers apply flag overrides first and then call
// Validate.
func LoadRunConfig(path string) (*RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects invalid numeric parameters and missing inputs before the
// first round starts.
func Validate(cfg *RunConfig) error {
	if cfg.Input == "" {
		return &ConfigurationError{Field: "input", Reason: "starting structure is required"}
	}
	if cfg.DistanceThresholdNm <= 0 {
		return &ConfigurationError{Field: "distance_threshold_nm", Reason: fmt.Sprintf("must be positive, got %g", cfg.DistanceThresholdNm)}
	}
	if cfg.SimulationThresholdAngstrom <= 0 {
		return &ConfigurationError{Field: "simulation_threshold_angstrom", Reason: fmt.Sprintf("must be positive, got %g", cfg.SimulationThresholdAngstrom)}
	}
	if cfg.NumSamples <= 0 {
		return &ConfigurationError{Field: "num_samples", Reason: fmt.Sprintf("must be positive, got %d", cfg.NumSamples)}
	}
	if cfg.SimulationTimeNs <= 0 {
		return &ConfigurationError{Field: "simulation_time_ns", Reason: fmt.Sprintf("must be positive, got %g", cfg.SimulationTimeNs)}
	}
	if cfg.MaxIterations <= 0 {
		return &ConfigurationError{Field: "max_iterations", Reason: fmt.Sprintf("must be positive, got %d", cfg.MaxIterations)}
	}
	if cfg.MaxWorkers < 0 {
		return &ConfigurationError{Field: "max_workers", Reason: fmt.Sprintf("cannot be negative, got %d", cfg.MaxWorkers)}
	}
	if cfg.SampleTimeout < 0 {
		return &ConfigurationError{Field: "sample_timeout", Reason: "cannot be negative"}
	}
	if cfg.ArchiveSize <= 0 {
		return &ConfigurationError{Field: "archive_size", Reason: fmt.Sprintf("must be positive, got %d", cfg.ArchiveSize)}
	}
	if cfg.OutputDir == "" {
		return &ConfigurationError{Field: "output_dir", Reason: "output directory is required"}
	}
	if err := validateGroup("group_a", cfg); err != nil {
		return err
	}
	if err := validateGroup("group_b", cfg); err != nil {
		return err
	}
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.LogLevel] {
		return &ConfigurationError{Field: "log_level", Reason: fmt.Sprintf("%s (must be debug, info, warn, or error)", cfg.LogLevel)}
	}
	return nil
}

func validateGroup(field string, cfg *RunConfig) error {
	g := cfg.GroupA
	if field == "group_b" {
		g = cfg.GroupB
	}
	if g.ChainID == "" && len(g.Residues) == 0 && len(g.AtomIndices) == 0 {
		return &ConfigurationError{Field: field, Reason: "group must name a chain, residues or atom indices"}
	}
	for _, r := range g.Residues {
		if r <= 0 {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("residue numbers must be positive, got %d", r)}
		}
	}
	for _, idx := range g.AtomIndices {
		if idx < 0 {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("atom indices cannot be negative, got %d", idx)}
		}
	}
	return nil
}
