package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/smc-ppi/sumd-core/pkg/logger"
)

const logTailLines = 20

// Gromacs shells out to the gmx binary. Each invocation stages its inputs
// into the private workdir, renders the parameter files there and runs
// grompp + mdrun per phase. mdrun is pinned to a single thread: parallelism
// in this system comes from independent worker processes, and the engine is
// not safe to run with a shared thread pool across overlapping invocations.
type Gromacs struct {
	// Binary is the engine executable, "gmx" when empty.
	Binary string
	// Topology is the system topology file staged into every workdir.
	Topology string
	// Extra are additional files staged alongside the topology (e.g.
	// position restraint includes).
	Extra []string
	// MaxWarn is passed to grompp; the source tooling uses 10.
	MaxWarn int
}

// NewGromacs returns a runner for the given topology file.
func NewGromacs(topology string) *Gromacs {
	return &Gromacs{Binary: "gmx", Topology: topology, MaxWarn: 10}
}

func (g *Gromacs) binary() string {
	if g.Binary == "" {
		return "gmx"
	}
	return g.Binary
}

// Run implements Runner. For ModeEM the result carries the minimized
// structure; for ModeEMThenMD minimization is followed by a dynamics segment
// started from the minimized structure, and the result carries both
// structures plus the compressed trajectory.
func (g *Gromacs) Run(ctx context.Context, mode Mode, inputStructure string, em, md Config, workdir string) (*Result, error) {
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, &Error{Op: "prepare workdir", Err: err}
	}
	input, err := g.stage(inputStructure, workdir)
	if err != nil {
		return nil, err
	}

	emOut, err := g.phase(ctx, workdir, "em", em, input)
	if err != nil {
		return nil, err
	}
	result := &Result{
		FinalStructure:     emOut,
		MinimizedStructure: emOut,
		LogPath:            filepath.Join(workdir, "em.log"),
	}
	if mode == ModeEM {
		return result, nil
	}

	mdOut, err := g.phase(ctx, workdir, "md", md, emOut)
	if err != nil {
		return nil, err
	}
	result.FinalStructure = mdOut
	result.LogPath = filepath.Join(workdir, "md.log")
	traj := filepath.Join(workdir, "md.xtc")
	if _, err := os.Stat(traj); err == nil {
		result.Trajectory = traj
	}
	return result, nil
}

// phase runs one grompp+mdrun pair under the given prefix and returns the
// output structure path.
func (g *Gromacs) phase(ctx context.Context, workdir, prefix string, cfg Config, input string) (string, error) {
	mdp := filepath.Join(workdir, prefix+".mdp")
	if err := os.WriteFile(mdp, []byte(cfg.RenderMDP()), 0o644); err != nil {
		return "", &Error{Op: prefix + " setup", Err: err}
	}

	tpr := filepath.Join(workdir, prefix+".tpr")
	gromppArgs := []string{
		"grompp",
		"-f", mdp,
		"-c", input,
		"-p", filepath.Join(workdir, filepath.Base(g.Topology)),
		"-o", tpr,
		"-maxwarn", fmt.Sprint(g.MaxWarn),
	}
	if err := g.exec(ctx, workdir, prefix, gromppArgs); err != nil {
		return "", err
	}

	mdrunArgs := []string{
		"mdrun",
		"-v",
		"-deffnm", prefix,
		"-ntmpi", "1",
		"-ntomp", "1",
	}
	if err := g.exec(ctx, workdir, prefix, mdrunArgs); err != nil {
		return "", err
	}

	out := filepath.Join(workdir, prefix+".gro")
	if _, err := os.Stat(out); err != nil {
		return "", &Error{
			Op:      prefix + " mdrun",
			Err:     fmt.Errorf("no output structure produced: %w", err),
			LogTail: tailLines(filepath.Join(workdir, prefix+".log"), logTailLines),
		}
	}
	return out, nil
}

func (g *Gromacs) exec(ctx context.Context, workdir, prefix string, args []string) error {
	cmd := exec.CommandContext(ctx, g.binary(), args...)
	cmd.Dir = workdir

	stderr := filepath.Join(workdir, prefix+".stderr")
	errFile, err := os.OpenFile(stderr, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &Error{Op: args[0], Err: err}
	}
	defer errFile.Close()
	cmd.Stdout = io.Discard
	cmd.Stderr = errFile

	logger.Debug("engine exec", "cmd", g.binary()+" "+strings.Join(args, " "), "workdir", workdir)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return &Error{Op: args[0], Err: ctx.Err()}
		}
		return &Error{Op: args[0], Err: err, LogTail: tailLines(stderr, logTailLines)}
	}
	return nil
}

// stage copies the input structure, the topology and any extra files into the
// workdir so concurrent invocations never collide.
func (g *Gromacs) stage(inputStructure, workdir string) (string, error) {
	staged := filepath.Join(workdir, filepath.Base(inputStructure))
	if err := copyFile(inputStructure, staged); err != nil {
		return "", &Error{Op: "stage input", Err: err}
	}
	files := append([]string{g.Topology}, g.Extra...)
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := copyFile(f, filepath.Join(workdir, filepath.Base(f))); err != nil {
			return "", &Error{Op: "stage topology", Err: err}
		}
	}
	return staged, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// tailLines returns the last n lines of a text file, best effort.
func tailLines(path string, n int) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
