package prep

import (
	"gonum.org/v1/gonum/mat"

	"github.com/smc-ppi/sumd-core/internal/structure"
)

var standardResidues = map[string]bool{
	"ALA": true, "ARG": true, "ASN": true, "ASP": true, "CYS": true,
	"GLN": true, "GLU": true, "GLY": true, "HIS": true, "ILE": true,
	"LEU": true, "LYS": true, "MET": true, "PHE": true, "PRO": true,
	"SER": true, "THR": true, "TRP": true, "TYR": true, "VAL": true,
	// common HIS protonation variants emitted by force fields
	"HID": true, "HIE": true, "HIP": true, "HSD": true, "HSE": true, "HSP": true,
}

// FilterStandard drops HETATM records and non-standard residues, keeping only
// protein atoms the force field can parameterize. Returns the filtered
// snapshot and the number of atoms removed.
func FilterStandard(snap *structure.Snapshot) (*structure.Snapshot, int) {
	var atoms []structure.Atom
	var coords []float64
	for i, a := range snap.Atoms {
		if a.Het || !standardResidues[a.ResName] {
			continue
		}
		atoms = append(atoms, a)
		x, y, z := snap.Coord(i)
		coords = append(coords, x, y, z)
	}

	removed := snap.NumAtoms() - len(atoms)
	if removed == 0 {
		return snap.Clone(), 0
	}
	out := &structure.Snapshot{Path: snap.Path, Atoms: atoms}
	if len(atoms) > 0 {
		out.Coords = mat.NewDense(len(atoms), 3, coords)
	}
	return out, removed
}
