package config

import (
	"time"

	"github.com/smc-ppi/sumd-core/internal/geometry"
)

// RunConfig is the full configuration of one supervised-dynamics run. It can
// be loaded from a YAML file, with CLI flags overriding individual fields.
type RunConfig struct {
	// Input is the starting structure (.pdb or .gro).
	Input string `yaml:"input"`

	// GroupA and GroupB are the two interaction groups of the distance
	// metric, fixed for the whole run.
	GroupA geometry.GroupSpec `yaml:"group_a"`
	GroupB geometry.GroupSpec `yaml:"group_b"`

	// DistanceThresholdNm is the convergence threshold in nanometers. The
	// run stops once the best candidate's distance falls at or below it.
	DistanceThresholdNm float64 `yaml:"distance_threshold_nm"`

	// SimulationThresholdAngstrom is the simulation-branch threshold in
	// Ångströms: candidates at or below it get a dynamics segment after
	// minimization. The two thresholds are independent and deliberately use
	// the units of the source tooling.
	SimulationThresholdAngstrom float64 `yaml:"simulation_threshold_angstrom"`

	// NumSamples is the number of candidates evaluated per round.
	NumSamples int `yaml:"num_samples"`

	// SimulationTimeNs is the simulated duration of each dynamics segment,
	// in nanoseconds.
	SimulationTimeNs float64 `yaml:"simulation_time_ns"`

	// MaxIterations is the round budget.
	MaxIterations int `yaml:"max_iterations"`

	// MaxWorkers bounds concurrent sample evaluations; 0 means the host's
	// processing-unit count.
	MaxWorkers int `yaml:"max_workers"`

	// SampleTimeout bounds one sample's wall clock; on expiry the sample is
	// reported as failed instead of blocking the round barrier. Zero
	// disables the limit.
	SampleTimeout time.Duration `yaml:"sample_timeout"`

	// OutputDir is the root of all per-round artifacts.
	OutputDir string `yaml:"output_dir"`

	// ArchiveSize is the number of globally best structures retained.
	ArchiveSize int `yaml:"archive_size"`

	// Engine configures the external engine invocation.
	Engine EngineConfig `yaml:"engine"`

	// StorePath is an optional sqlite database recording run history; empty
	// disables the store.
	StorePath string `yaml:"store_path,omitempty"`

	LogLevel string `yaml:"log_level"`
}

// EngineConfig locates the external engine and its system inputs.
type EngineConfig struct {
	// Binary is the engine executable; "gmx" when empty.
	Binary string `yaml:"binary,omitempty"`
	// Topology is the system topology file staged into every sample
	// working directory.
	Topology string `yaml:"topology"`
	// Extra are additional staged files (restraint includes and similar).
	Extra []string `yaml:"extra,omitempty"`
	// ForceFields is the preference-ordered force field list used during
	// system preparation.
	ForceFields []string `yaml:"force_fields,omitempty"`
	MaxWarn     int      `yaml:"max_warn,omitempty"`
}

// DefaultRunConfig returns the defaults of the source tooling: 0.5 nm
// convergence, 5 Å simulation branch, 5 samples, 2 ns segments, 10 rounds.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		DistanceThresholdNm:         0.5,
		SimulationThresholdAngstrom: 5.0,
		NumSamples:                  5,
		SimulationTimeNs:            2.0,
		MaxIterations:               10,
		ArchiveSize:                 5,
		OutputDir:                   "./sumd_output",
		LogLevel:                    "info",
		Engine: EngineConfig{
			Binary:      "gmx",
			MaxWarn:     10,
			ForceFields: []string{"charmm36-jul2022", "amber99sb-ildn", "gromos54a7", "oplsaa"},
		},
	}
}

// SimThresholdNm returns the simulation-branch threshold normalized to
// nanometers. Normalization happens exactly once, here.
func (c *RunConfig) SimThresholdNm() float64 {
	return c.SimulationThresholdAngstrom / 10.0
}

