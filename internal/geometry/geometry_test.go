package geometry

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/smc-ppi/sumd-core/internal/structure"
)

// twoGroupSnapshot builds a snapshot with two atoms on chain A at the origin
// and two atoms on chain B centered sepAngstrom away along x.
func twoGroupSnapshot(sepAngstrom float64) *structure.Snapshot {
	atoms := []structure.Atom{
		{Serial: 1, Name: "CA", ResName: "ALA", ChainID: "A", ResSeq: 1},
		{Serial: 2, Name: "CB", ResName: "ALA", ChainID: "A", ResSeq: 1},
		{Serial: 3, Name: "CA", ResName: "GLY", ChainID: "B", ResSeq: 2},
		{Serial: 4, Name: "CB", ResName: "GLY", ChainID: "B", ResSeq: 2},
	}
	coords := []float64{
		0, 1, 0,
		0, -1, 0,
		sepAngstrom, 1, 0,
		sepAngstrom, -1, 0,
	}
	return &structure.Snapshot{Path: "mem.pdb", Atoms: atoms, Coords: mat.NewDense(4, 3, coords)}
}

func TestSelectByChain(t *testing.T) {
	snap := twoGroupSnapshot(10)

	idx, err := Select(snap, GroupSpec{Name: "a", ChainID: "A"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(idx) != 2 || idx[0] != 0 || idx[1] != 1 {
		t.Fatalf("unexpected selection: %v", idx)
	}

	// chain matching is case-insensitive
	idx, err = Select(snap, GroupSpec{Name: "a", ChainID: "a"})
	if err != nil {
		t.Fatalf("case-insensitive Select failed: %v", err)
	}
	if len(idx) != 2 {
		t.Fatalf("expected 2 atoms, got %d", len(idx))
	}
}

func TestSelectByChainAndResidues(t *testing.T) {
	snap := twoGroupSnapshot(10)
	idx, err := Select(snap, GroupSpec{Name: "b", ChainID: "B", Residues: []int{2}})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(idx) != 2 || idx[0] != 2 {
		t.Fatalf("unexpected selection: %v", idx)
	}

	_, err = Select(snap, GroupSpec{Name: "b", ChainID: "B", Residues: []int{99}})
	var selErr *SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected *SelectionError for absent residue, got %v", err)
	}
}

func TestSelectByAtomIndices(t *testing.T) {
	snap := twoGroupSnapshot(10)
	idx, err := Select(snap, GroupSpec{Name: "x", AtomIndices: []int{0, 3}})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(idx) != 2 || idx[1] != 3 {
		t.Fatalf("unexpected selection: %v", idx)
	}

	_, err = Select(snap, GroupSpec{Name: "x", AtomIndices: []int{0, 4}})
	var selErr *SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected *SelectionError for out-of-range index, got %v", err)
	}
}

func TestSelectEmptyChain(t *testing.T) {
	snap := twoGroupSnapshot(10)
	_, err := Select(snap, GroupSpec{Name: "z", ChainID: "Z"})
	var selErr *SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected *SelectionError, got %v", err)
	}
}

func TestCentroid(t *testing.T) {
	snap := twoGroupSnapshot(10)
	c := Centroid(snap, []int{0, 1})
	if c[0] != 0 || c[1] != 0 || c[2] != 0 {
		t.Fatalf("expected centroid at origin, got %v", c)
	}
	c = Centroid(snap, []int{2, 3})
	if c[0] != 10 || c[1] != 0 {
		t.Fatalf("expected centroid at x=10, got %v", c)
	}
}

func TestDistanceReturnsNanometers(t *testing.T) {
	tests := []struct {
		sepAngstrom float64
		wantNm      float64
	}{
		{10, 1.0},
		{5, 0.5},
		{0, 0},
	}
	a := GroupSpec{Name: "a", ChainID: "A"}
	b := GroupSpec{Name: "b", ChainID: "B"}
	for _, tt := range tests {
		snap := twoGroupSnapshot(tt.sepAngstrom)
		d, err := Distance(snap, a, b)
		if err != nil {
			t.Fatalf("Distance failed: %v", err)
		}
		if math.Abs(d-tt.wantNm) > 1e-9 {
			t.Fatalf("separation %v Å: expected %v nm, got %v", tt.sepAngstrom, tt.wantNm, d)
		}
	}
}

func TestDistanceFile(t *testing.T) {
	snap := twoGroupSnapshot(8)
	path := filepath.Join(t.TempDir(), "pair.pdb")
	if err := structure.WritePDB(snap, path); err != nil {
		t.Fatalf("WritePDB failed: %v", err)
	}

	d, err := DistanceFile(path, GroupSpec{Name: "a", ChainID: "A"}, GroupSpec{Name: "b", ChainID: "B"})
	if err != nil {
		t.Fatalf("DistanceFile failed: %v", err)
	}
	if math.Abs(d-0.8) > 1e-6 {
		t.Fatalf("expected 0.8 nm, got %v", d)
	}

	if _, err := DistanceFile(filepath.Join(t.TempDir(), "absent.pdb"),
		GroupSpec{ChainID: "A"}, GroupSpec{ChainID: "B"}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
