package engine

import (
	"fmt"
	"math"
	"strings"
)

// Config is an immutable numeric parameter bundle for one engine phase. Zero
// values mean "omit from the rendered parameter file", so the two presets
// below only set what their integrator needs.
type Config struct {
	Integrator string  `yaml:"integrator"`
	Steps      int     `yaml:"steps"`
	TimeStepPs float64 `yaml:"time_step_ps,omitempty"`

	// energy minimization
	EMTolerance float64 `yaml:"em_tolerance,omitempty"`
	EMStep      float64 `yaml:"em_step,omitempty"`

	// output intervals (dynamics only)
	OutputInterval int `yaml:"output_interval,omitempty"`

	// velocity generation
	GenVel  bool    `yaml:"gen_vel,omitempty"`
	GenTemp float64 `yaml:"gen_temp,omitempty"`
	GenSeed int     `yaml:"gen_seed,omitempty"`

	// temperature coupling
	Thermostat string  `yaml:"thermostat,omitempty"`
	TauT       float64 `yaml:"tau_t,omitempty"`
	RefT       float64 `yaml:"ref_t,omitempty"`

	// pressure coupling
	Barostat        string  `yaml:"barostat,omitempty"`
	TauP            float64 `yaml:"tau_p,omitempty"`
	RefP            float64 `yaml:"ref_p,omitempty"`
	Compressibility float64 `yaml:"compressibility,omitempty"`

	// constraints
	ConstraintAlgorithm string `yaml:"constraint_algorithm,omitempty"`
	Constraints         string `yaml:"constraints,omitempty"`
	LincsIter           int    `yaml:"lincs_iter,omitempty"`
	LincsOrder          int    `yaml:"lincs_order,omitempty"`

	// neighbor list / cutoffs
	CutoffScheme string  `yaml:"cutoff_scheme,omitempty"`
	NeighborList int     `yaml:"neighbor_list,omitempty"`
	CoulombType  string  `yaml:"coulomb_type,omitempty"`
	RCoulomb     float64 `yaml:"r_coulomb,omitempty"`
	RVdw         float64 `yaml:"r_vdw,omitempty"`
	DispCorr     string  `yaml:"disp_corr,omitempty"`
}

// DefaultEMConfig returns the canonical energy-minimization preset: steepest
// descent, 5000 steps, force tolerance 1000 kJ/mol/nm.
func DefaultEMConfig() Config {
	return Config{
		Integrator:   "steep",
		Steps:        5000,
		EMTolerance:  1000.0,
		EMStep:       0.01,
		CutoffScheme: "Verlet",
		NeighborList: 1,
		CoulombType:  "PME",
		RCoulomb:     1.0,
		RVdw:         1.0,
	}
}

// DefaultTimeStepPs is the integration time step of the dynamics preset, in
// picoseconds.
const DefaultTimeStepPs = 0.002

// DefaultMDConfig returns the canonical short-dynamics preset for a segment of
// ns simulated nanoseconds: leapfrog integrator at a 2 fs time step, V-rescale
// thermostat at 300 K, Parrinello-Rahman barostat at 1 bar, all-bond LINCS
// constraints. genSeed varies the generated velocities per sample.
func DefaultMDConfig(ns float64, genSeed int) Config {
	return Config{
		Integrator:          "md",
		Steps:               StepsFor(ns, DefaultTimeStepPs),
		TimeStepPs:          DefaultTimeStepPs,
		OutputInterval:      1000,
		GenVel:              true,
		GenTemp:             300,
		GenSeed:             genSeed,
		Thermostat:          "V-rescale",
		TauT:                0.1,
		RefT:                300,
		Barostat:            "Parrinello-Rahman",
		TauP:                2.0,
		RefP:                1.0,
		Compressibility:     4.5e-5,
		ConstraintAlgorithm: "lincs",
		Constraints:         "all-bonds",
		LincsIter:           1,
		LincsOrder:          4,
		CutoffScheme:        "Verlet",
		NeighborList:        10,
		CoulombType:         "PME",
		RCoulomb:            1.0,
		RVdw:                1.0,
		DispCorr:            "EnerPres",
	}
}

// StepsFor converts ns simulated nanoseconds into integrator steps for the
// given time step in picoseconds. The division stays in floating point so
// fractional-nanosecond segments keep their steps instead of truncating away.
func StepsFor(ns, dtPs float64) int {
	return int(math.Round(ns * 1000.0 / dtPs))
}

// RenderMDP renders the configuration as a GROMACS .mdp parameter file.
func (c Config) RenderMDP() string {
	var b strings.Builder
	put := func(key string, value any) {
		fmt.Fprintf(&b, "%-22s = %v\n", key, value)
	}
	put("integrator", c.Integrator)
	put("nsteps", c.Steps)
	if c.TimeStepPs > 0 {
		put("dt", c.TimeStepPs)
	}
	if c.EMTolerance > 0 {
		put("emtol", c.EMTolerance)
	}
	if c.EMStep > 0 {
		put("emstep", c.EMStep)
	}
	if c.OutputInterval > 0 {
		put("nstenergy", c.OutputInterval)
		put("nstlog", c.OutputInterval)
		put("nstxout-compressed", c.OutputInterval)
	}
	if c.GenVel {
		put("gen_vel", "yes")
		put("gen_temp", c.GenTemp)
		put("gen_seed", c.GenSeed)
	}
	if c.Thermostat != "" {
		put("tcoupl", c.Thermostat)
		put("tc-grps", "System")
		put("tau_t", c.TauT)
		put("ref_t", c.RefT)
	}
	if c.Barostat != "" {
		put("pcoupl", c.Barostat)
		put("pcoupltype", "isotropic")
		put("tau_p", c.TauP)
		put("ref_p", c.RefP)
		put("compressibility", c.Compressibility)
	}
	if c.ConstraintAlgorithm != "" {
		put("constraint_algorithm", c.ConstraintAlgorithm)
		put("constraints", c.Constraints)
		put("lincs_iter", c.LincsIter)
		put("lincs_order", c.LincsOrder)
	}
	if c.CutoffScheme != "" {
		put("cutoff-scheme", c.CutoffScheme)
		put("nstlist", c.NeighborList)
		put("ns_type", "grid")
	}
	if c.CoulombType != "" {
		put("coulombtype", c.CoulombType)
		put("rcoulomb", c.RCoulomb)
		put("rvdw", c.RVdw)
	}
	if c.DispCorr != "" {
		put("DispCorr", c.DispCorr)
	}
	put("pbc", "xyz")
	return b.String()
}
