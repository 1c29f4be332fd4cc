package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// FakeCall is one scripted response of the fake runner.
type FakeCall struct {
	// Structure is the structure content written as the invocation's
	// outputs.
	Structure string
	// WithTrajectory writes a trajectory file for ModeEMThenMD calls.
	WithTrajectory bool
	// Fail makes the call return an *Error instead of a result.
	Fail bool
	// Block makes the call wait for ctx cancellation before failing,
	// simulating a hung engine subprocess.
	Block bool
}

// Fake is a Runner that replays scripted results, for tests that exercise the
// sampling loop without a real engine. Calls beyond the script replay the
// last entry; an empty script fails every call.
type Fake struct {
	mu     sync.Mutex
	Script []FakeCall
	calls  int

	// Ext is the output structure extension without the dot, "pdb" when
	// empty. The real adapter always writes "gro".
	Ext string

	// Modes records the mode of every call in order.
	Modes []Mode
}

// Run implements Runner.
func (f *Fake) Run(ctx context.Context, mode Mode, inputStructure string, em, md Config, workdir string) (*Result, error) {
	f.mu.Lock()
	call := FakeCall{Fail: true}
	if len(f.Script) > 0 {
		idx := f.calls
		if idx >= len(f.Script) {
			idx = len(f.Script) - 1
		}
		call = f.Script[idx]
	}
	f.calls++
	f.Modes = append(f.Modes, mode)
	f.mu.Unlock()

	if call.Block {
		<-ctx.Done()
		return nil, &Error{Op: "mdrun", Err: ctx.Err()}
	}
	if call.Fail {
		return nil, &Error{Op: "mdrun", Err: errors.New("scripted failure"), LogTail: []string{"Fatal error"}}
	}

	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, &Error{Op: "prepare workdir", Err: err}
	}
	ext := f.Ext
	if ext == "" {
		ext = "pdb"
	}
	emPath := filepath.Join(workdir, "em."+ext)
	if err := os.WriteFile(emPath, []byte(call.Structure), 0o644); err != nil {
		return nil, &Error{Op: "write output", Err: err}
	}
	result := &Result{FinalStructure: emPath, MinimizedStructure: emPath}
	if mode == ModeEMThenMD {
		mdPath := filepath.Join(workdir, "md."+ext)
		if err := os.WriteFile(mdPath, []byte(call.Structure), 0o644); err != nil {
			return nil, &Error{Op: "write output", Err: err}
		}
		result.FinalStructure = mdPath
		if call.WithTrajectory {
			traj := filepath.Join(workdir, "md.xtc")
			if err := os.WriteFile(traj, []byte("xtc"), 0o644); err != nil {
				return nil, &Error{Op: "write output", Err: err}
			}
			result.Trajectory = traj
		}
	}
	return result, nil
}

// Calls returns how many times Run was invoked.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
