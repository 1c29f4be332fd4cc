package structure

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Read parses a structure file into a snapshot. PDB and GRO formats are
// supported; all coordinates are normalized to Ångströms (GRO files store
// nanometers). Parse failures return a *ReadError.
func Read(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	switch FormatOf(path) {
	case FormatPDB:
		return readPDB(path, f)
	case FormatGRO:
		return readGRO(path, f)
	default:
		return nil, &ReadError{Path: path, Reason: "unsupported format (want .pdb or .gro)"}
	}
}

func readPDB(path string, f *os.File) (*Snapshot, error) {
	var (
		atoms  []Atom
		coords []float64
	)
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			if strings.HasPrefix(line, "ENDMDL") {
				break // first model only
			}
			continue
		}
		if len(line) < 54 {
			return nil, &ReadError{Path: path, Line: lineno, Reason: "truncated atom record"}
		}
		atom, xyz, err := parsePDBAtomLine(line)
		if err != nil {
			return nil, &ReadError{Path: path, Line: lineno, Reason: err.Error()}
		}
		atoms = append(atoms, atom)
		coords = append(coords, xyz[0], xyz[1], xyz[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, &ReadError{Path: path, Reason: err.Error()}
	}
	if len(atoms) == 0 {
		return nil, &ReadError{Path: path, Reason: "no atom records"}
	}
	return &Snapshot{Path: path, Atoms: atoms, Coords: mat.NewDense(len(atoms), 3, coords)}, nil
}

// parsePDBAtomLine reads one fixed-column ATOM/HETATM record. Column offsets
// follow the PDB 3.3 format description.
func parsePDBAtomLine(line string) (Atom, [3]float64, error) {
	var atom Atom
	var xyz [3]float64

	atom.Het = strings.HasPrefix(line, "HETATM")
	serial, err := strconv.Atoi(strings.TrimSpace(line[6:11]))
	if err != nil {
		return atom, xyz, err
	}
	atom.Serial = serial
	atom.Name = strings.TrimSpace(line[12:16])
	atom.AltLoc = strings.TrimSpace(line[16:17])
	atom.ResName = strings.TrimSpace(line[17:20])
	atom.ChainID = strings.TrimSpace(line[21:22])
	resSeq, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
	if err != nil {
		return atom, xyz, err
	}
	atom.ResSeq = resSeq
	atom.ICode = strings.TrimSpace(line[26:27])

	for i, span := range [3][2]int{{30, 38}, {38, 46}, {46, 54}} {
		v, err := strconv.ParseFloat(strings.TrimSpace(line[span[0]:span[1]]), 64)
		if err != nil {
			return atom, xyz, err
		}
		xyz[i] = v
	}
	if len(line) >= 60 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(line[54:60]), 64); err == nil {
			atom.Occupancy = v
		}
	}
	if len(line) >= 66 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(line[60:66]), 64); err == nil {
			atom.BFactor = v
		}
	}
	if len(line) >= 78 {
		atom.Element = strings.TrimSpace(line[76:78])
	}
	if atom.Element == "" && atom.Name != "" {
		atom.Element = elementFromName(atom.Name)
	}
	return atom, xyz, nil
}

// elementFromName falls back to the first alphabetic character of the atom
// name, which is correct for the organic elements seen in protein systems.
func elementFromName(name string) string {
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			return string(r)
		}
	}
	return ""
}

func readGRO(path string, f *os.File) (*Snapshot, error) {
	scanner := bufio.NewScanner(f)

	// title line
	if !scanner.Scan() {
		return nil, &ReadError{Path: path, Reason: "missing title line"}
	}
	// atom count line
	if !scanner.Scan() {
		return nil, &ReadError{Path: path, Line: 2, Reason: "missing atom count"}
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || n <= 0 {
		return nil, &ReadError{Path: path, Line: 2, Reason: "invalid atom count"}
	}

	atoms := make([]Atom, 0, n)
	coords := make([]float64, 0, 3*n)
	for i := 0; i < n; i++ {
		if !scanner.Scan() {
			return nil, &ReadError{Path: path, Line: 2 + i + 1, Reason: "unexpected end of file"}
		}
		line := scanner.Text()
		if len(line) < 44 {
			return nil, &ReadError{Path: path, Line: 2 + i + 1, Reason: "truncated atom line"}
		}
		resSeq, err := strconv.Atoi(strings.TrimSpace(line[0:5]))
		if err != nil {
			return nil, &ReadError{Path: path, Line: 2 + i + 1, Reason: "invalid residue number"}
		}
		atom := Atom{
			ResSeq:  resSeq,
			ResName: strings.TrimSpace(line[5:10]),
			Name:    strings.TrimSpace(line[10:15]),
		}
		serial, err := strconv.Atoi(strings.TrimSpace(line[15:20]))
		if err != nil {
			return nil, &ReadError{Path: path, Line: 2 + i + 1, Reason: "invalid atom number"}
		}
		atom.Serial = serial
		atom.Element = elementFromName(atom.Name)

		for _, span := range [3][2]int{{20, 28}, {28, 36}, {36, 44}} {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[span[0]:span[1]]), 64)
			if err != nil {
				return nil, &ReadError{Path: path, Line: 2 + i + 1, Reason: "invalid coordinate"}
			}
			coords = append(coords, v*10.0) // nm to Å
		}
		atoms = append(atoms, atom)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ReadError{Path: path, Reason: err.Error()}
	}
	return &Snapshot{Path: path, Atoms: atoms, Coords: mat.NewDense(len(atoms), 3, coords)}, nil
}
