// Package structure holds the atomic-structure snapshot model shared by the
// geometry evaluator, the preprocessing steps and the archive. A snapshot is
// an immutable view of one structure file; every transformation produces a
// new snapshot.
package structure

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Atom is one atom record of a structure snapshot. Coordinates live in the
// snapshot's coordinate matrix, indexed by the atom's position in Atoms.
type Atom struct {
	Serial    int
	Name      string
	AltLoc    string
	ResName   string
	ChainID   string
	ResSeq    int
	ICode     string
	Element   string
	Occupancy float64
	BFactor   float64
	Het       bool
}

// Snapshot is a parsed structure file: atom records plus an N×3 coordinate
// matrix in Ångströms. Snapshots are never mutated in place.
type Snapshot struct {
	Path   string
	Atoms  []Atom
	Coords *mat.Dense
}

// NumAtoms returns the number of atoms in the snapshot.
func (s *Snapshot) NumAtoms() int {
	return len(s.Atoms)
}

// Coord returns the coordinates of atom i in Ångströms.
func (s *Snapshot) Coord(i int) (x, y, z float64) {
	return s.Coords.At(i, 0), s.Coords.At(i, 1), s.Coords.At(i, 2)
}

// HasChainIDs reports whether any atom carries a chain identifier. GRO files
// never do; the format has no chain column.
func (s *Snapshot) HasChainIDs() bool {
	for i := range s.Atoms {
		if s.Atoms[i].ChainID != "" {
			return true
		}
	}
	return false
}

// AdoptChainIDs copies chain identifiers from ref onto the snapshot by atom
// position. Engine outputs written as .gro lose the chain column even when the
// run started from a PDB, so chain-based selections need the input structure's
// assignment carried over. The copy happens only when the snapshot has no
// chain IDs of its own and the atom counts match; it reports whether anything
// was adopted. Callers apply this to a freshly read, unshared snapshot.
func (s *Snapshot) AdoptChainIDs(ref *Snapshot) bool {
	if ref == nil || len(s.Atoms) != len(ref.Atoms) || s.HasChainIDs() || !ref.HasChainIDs() {
		return false
	}
	for i := range s.Atoms {
		s.Atoms[i].ChainID = ref.Atoms[i].ChainID
	}
	return true
}

// Clone returns a deep copy of the snapshot. Repairs operate on the copy so
// the original stays untouched.
func (s *Snapshot) Clone() *Snapshot {
	atoms := make([]Atom, len(s.Atoms))
	copy(atoms, s.Atoms)
	var coords *mat.Dense
	if s.Coords != nil {
		coords = mat.DenseCopyOf(s.Coords)
	}
	return &Snapshot{Path: s.Path, Atoms: atoms, Coords: coords}
}

// ReadError reports a structure file that could not be parsed.
type ReadError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("structure read failed: %s line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("structure read failed: %s: %s", e.Path, e.Reason)
}

// Format identifies a supported structure file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDB
	FormatGRO
)

// FormatOf guesses the file format from the path extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdb":
		return FormatPDB
	case ".gro":
		return FormatGRO
	default:
		return FormatUnknown
	}
}
