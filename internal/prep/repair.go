// Package prep implements the preprocessing boundary: residue repairs,
// standard-residue filtering and optional system preparation ahead of the
// sampling loop.
package prep

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/smc-ppi/sumd-core/internal/structure"
	"github.com/smc-ppi/sumd-core/pkg/logger"
)

// RepairRule describes one residue-type-specific atom insertion: when a
// residue of type Residue lacks the Missing atom, it is placed on the line
// from Direction through Anchor, BondLength Ångströms past Anchor. Rules are
// data, so new residue repairs are additive.
type RepairRule struct {
	Residue    string
	Missing    string
	Anchor     string
	Direction  string
	BondLength float64
	Element    string
}

// DefaultRepairRules returns the shipped repair table. The only rule the
// source systems need is the cysteine thiol hydrogen: HG placed along the
// CA→SG vector, 1.33 Å from SG.
func DefaultRepairRules() []RepairRule {
	return []RepairRule{
		{Residue: "CYS", Missing: "HG", Anchor: "SG", Direction: "CA", BondLength: 1.33, Element: "H"},
	}
}

type insertion struct {
	after int // atom index the insertion follows
	atom  structure.Atom
	coord [3]float64
}

// Repair applies the rule table to a snapshot and returns a new snapshot plus
// the number of atoms added. The input snapshot is not mutated.
func Repair(snap *structure.Snapshot, rules []RepairRule) (*structure.Snapshot, int) {
	var insertions []insertion

	maxSerial := 0
	for _, a := range snap.Atoms {
		if a.Serial > maxSerial {
			maxSerial = a.Serial
		}
	}

	for _, rule := range rules {
		for _, res := range residues(snap) {
			if snap.Atoms[res.first].ResName != rule.Residue {
				continue
			}
			if res.find(snap, rule.Missing) >= 0 {
				continue
			}
			anchor := res.find(snap, rule.Anchor)
			direction := res.find(snap, rule.Direction)
			if anchor < 0 || direction < 0 {
				logger.Warn("repair skipped, anchor atoms missing",
					"residue", rule.Residue, "resseq", snap.Atoms[res.first].ResSeq, "atom", rule.Missing)
				continue
			}

			ax, ay, az := snap.Coord(anchor)
			dx, dy, dz := snap.Coord(direction)
			vx, vy, vz := ax-dx, ay-dy, az-dz
			norm := math.Sqrt(vx*vx + vy*vy + vz*vz)
			if norm < 1e-3 {
				logger.Warn("repair skipped, degenerate geometry",
					"residue", rule.Residue, "resseq", snap.Atoms[res.first].ResSeq)
				continue
			}

			maxSerial++
			template := snap.Atoms[anchor]
			insertions = append(insertions, insertion{
				after: res.last,
				atom: structure.Atom{
					Serial:    maxSerial,
					Name:      rule.Missing,
					ResName:   template.ResName,
					ChainID:   template.ChainID,
					ResSeq:    template.ResSeq,
					ICode:     template.ICode,
					Element:   rule.Element,
					Occupancy: template.Occupancy,
					BFactor:   template.BFactor,
				},
				coord: [3]float64{
					ax + vx/norm*rule.BondLength,
					ay + vy/norm*rule.BondLength,
					az + vz/norm*rule.BondLength,
				},
			})
		}
	}

	if len(insertions) == 0 {
		return snap.Clone(), 0
	}
	return rebuild(snap, insertions), len(insertions)
}

// residueSpan is one contiguous residue in snapshot atom order.
type residueSpan struct {
	first, last int
}

func (r residueSpan) find(snap *structure.Snapshot, name string) int {
	for i := r.first; i <= r.last; i++ {
		if snap.Atoms[i].Name == name {
			return i
		}
	}
	return -1
}

func residues(snap *structure.Snapshot) []residueSpan {
	var spans []residueSpan
	for i := 0; i < snap.NumAtoms(); {
		j := i
		for j+1 < snap.NumAtoms() &&
			snap.Atoms[j+1].ChainID == snap.Atoms[i].ChainID &&
			snap.Atoms[j+1].ResSeq == snap.Atoms[i].ResSeq &&
			snap.Atoms[j+1].ICode == snap.Atoms[i].ICode {
			j++
		}
		spans = append(spans, residueSpan{first: i, last: j})
		i = j + 1
	}
	return spans
}

// rebuild assembles a new snapshot with the insertions spliced in after their
// residues, preserving atom order otherwise.
func rebuild(snap *structure.Snapshot, insertions []insertion) *structure.Snapshot {
	byPos := make(map[int][]int, len(insertions))
	for i, ins := range insertions {
		byPos[ins.after] = append(byPos[ins.after], i)
	}

	n := snap.NumAtoms() + len(insertions)
	atoms := make([]structure.Atom, 0, n)
	coords := make([]float64, 0, 3*n)
	for i := 0; i < snap.NumAtoms(); i++ {
		atoms = append(atoms, snap.Atoms[i])
		x, y, z := snap.Coord(i)
		coords = append(coords, x, y, z)
		for _, ins := range byPos[i] {
			atoms = append(atoms, insertions[ins].atom)
			c := insertions[ins].coord
			coords = append(coords, c[0], c[1], c[2])
		}
	}
	return &structure.Snapshot{
		Path:   snap.Path,
		Atoms:  atoms,
		Coords: mat.NewDense(n, 3, coords),
	}
}
