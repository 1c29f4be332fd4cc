// Package engine invokes the external molecular-dynamics engine. The engine
// is an opaque subprocess with file-based I/O; this package only prepares its
// inputs, runs it inside a private working directory and locates its outputs.
package engine

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects what one engine invocation performs.
type Mode int

const (
	// ModeEM runs energy minimization only.
	ModeEM Mode = iota
	// ModeEMThenMD runs energy minimization followed by a short dynamics
	// segment seeded from the minimized structure.
	ModeEMThenMD
)

func (m Mode) String() string {
	switch m {
	case ModeEM:
		return "EM_only"
	case ModeEMThenMD:
		return "EM+MD"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Result holds the file outputs of one engine invocation. Trajectory is empty
// when no dynamics segment ran.
type Result struct {
	// FinalStructure is the last structure the invocation produced: the
	// minimized structure for ModeEM, the dynamics-final structure for
	// ModeEMThenMD.
	FinalStructure string
	// MinimizedStructure is the post-minimization structure. For ModeEM it
	// equals FinalStructure.
	MinimizedStructure string
	Trajectory         string
	LogPath            string
}

// Runner is the engine invocation boundary. Implementations must give each
// call exclusive use of workdir; concurrent calls never share output files.
// The adapter does not retry — retry policy belongs to the caller.
type Runner interface {
	Run(ctx context.Context, mode Mode, inputStructure string, em, md Config, workdir string) (*Result, error)
}

// Error reports an engine invocation that exited nonzero or produced no
// output. It carries the tail of the engine log for diagnostics.
type Error struct {
	Op      string
	Err     error
	LogTail []string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("engine %s failed: %v", e.Op, e.Err)
	if len(e.LogTail) > 0 {
		msg += "\n" + strings.Join(e.LogTail, "\n")
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
