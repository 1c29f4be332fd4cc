package prep

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/smc-ppi/sumd-core/internal/structure"
	"github.com/smc-ppi/sumd-core/pkg/logger"
)

// Preparer builds a simulation-ready system from a repaired protein
// structure: topology generation, box, solvation and neutralization. Each
// step shells out to the engine binary in a dedicated working directory.
type Preparer struct {
	Binary      string
	ForceFields []string // tried in order until pdb2gmx succeeds
	WaterModel  string
	BoxMargin   float64 // editconf -d, nm
}

// NewPreparer returns a Preparer with the usual defaults.
func NewPreparer(binary string, forceFields []string) *Preparer {
	if binary == "" {
		binary = "gmx"
	}
	return &Preparer{
		Binary:      binary,
		ForceFields: forceFields,
		WaterModel:  "tip3p",
		BoxMargin:   1.0,
	}
}

// System is the output of a preparation run.
type System struct {
	Structure  string // solvated, neutralized coordinates
	Topology   string
	ForceField string // the force field that succeeded
}

// Prepare runs the full pipeline in workdir. The input must be a repaired,
// protein-only PDB file; Repair and FilterStandard handle that upstream.
func (p *Preparer) Prepare(ctx context.Context, input, workdir string) (*System, error) {
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare workdir: %w", err)
	}
	staged := filepath.Join(workdir, "input.pdb")
	if err := stageInput(input, staged); err != nil {
		return nil, err
	}

	topology := filepath.Join(workdir, "topol.top")
	processed := filepath.Join(workdir, "processed.gro")

	forceField, err := p.topology(ctx, staged, processed, topology, workdir)
	if err != nil {
		return nil, err
	}
	logger.Info("topology generated", "force_field", forceField)

	boxed := filepath.Join(workdir, "boxed.gro")
	if err := p.run(ctx, workdir, nil,
		"editconf", "-f", processed, "-o", boxed,
		"-c", "-d", fmt.Sprintf("%g", p.BoxMargin), "-bt", "cubic"); err != nil {
		return nil, err
	}

	solvated := filepath.Join(workdir, "solvated.gro")
	if err := p.run(ctx, workdir, nil,
		"solvate", "-cp", boxed, "-cs", "spc216.gro",
		"-o", solvated, "-p", topology); err != nil {
		return nil, err
	}

	ionsTPR := filepath.Join(workdir, "ions.tpr")
	ionsMDP := filepath.Join(workdir, "ions.mdp")
	if err := os.WriteFile(ionsMDP, []byte("integrator = steep\nnsteps = 0\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write ions.mdp: %w", err)
	}
	if err := p.run(ctx, workdir, nil,
		"grompp", "-f", ionsMDP, "-c", solvated, "-p", topology,
		"-o", ionsTPR, "-maxwarn", "10"); err != nil {
		return nil, err
	}

	// genion prompts for the solvent group; "SOL" on stdin answers it.
	neutral := filepath.Join(workdir, "system.gro")
	if err := p.run(ctx, workdir, strings.NewReader("SOL\n"),
		"genion", "-s", ionsTPR, "-o", neutral, "-p", topology,
		"-pname", "NA", "-nname", "CL", "-neutral"); err != nil {
		return nil, err
	}

	return &System{Structure: neutral, Topology: topology, ForceField: forceField}, nil
}

// topology tries each configured force field in order. pdb2gmx rejects
// structures whose residue or atom naming a force field does not recognize,
// so a fallback list covers heterogeneous inputs.
func (p *Preparer) topology(ctx context.Context, input, output, topology, workdir string) (string, error) {
	if len(p.ForceFields) == 0 {
		return "", fmt.Errorf("prepare: no force fields configured")
	}
	var lastErr error
	for _, ff := range p.ForceFields {
		err := p.run(ctx, workdir, nil,
			"pdb2gmx", "-f", input, "-o", output, "-p", topology,
			"-ff", ff, "-water", p.WaterModel, "-ignh")
		if err == nil {
			return ff, nil
		}
		logger.Warn("force field rejected input", "force_field", ff, "error", err)
		lastErr = err
	}
	return "", fmt.Errorf("prepare: no force field accepted the structure: %w", lastErr)
}

func (p *Preparer) run(ctx context.Context, workdir string, stdin *strings.Reader, args ...string) error {
	cmd := exec.CommandContext(ctx, p.Binary, args...)
	cmd.Dir = workdir
	if stdin != nil {
		cmd.Stdin = stdin
	}
	logPath := filepath.Join(workdir, args[0]+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", args[0], err)
	}
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	logger.Debug("running prepare step", "step", args[0], "workdir", workdir)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("prepare %s: %w (log: %s)", args[0], err, logPath)
	}
	return nil
}

// stageInput copies the input into the working directory so subsequent steps
// use relative paths and the original file is never touched.
func stageInput(src, dst string) error {
	snap, err := structure.Read(src)
	if err != nil {
		return err
	}
	return structure.WritePDB(snap, dst)
}
