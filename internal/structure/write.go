package structure

import (
	"bufio"
	"fmt"
	"os"
)

// WritePDB serializes a snapshot as a PDB file. The writer is used by the
// repair step and the archive; it emits ATOM/HETATM records plus END.
func WritePDB(snap *Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, atom := range snap.Atoms {
		x, y, z := snap.Coord(i)
		record := "ATOM  "
		if atom.Het {
			record = "HETATM"
		}
		// PDB 3.3 fixed columns. Atom names shorter than four characters
		// are conventionally padded with a leading space.
		name := atom.Name
		if len(name) < 4 {
			name = fmt.Sprintf(" %-3s", name)
		}
		_, err := fmt.Fprintf(w, "%s%5d %4s%1s%-3s %1s%4d%1s   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
			record, atom.Serial, name, atom.AltLoc, atom.ResName, atom.ChainID,
			atom.ResSeq, atom.ICode, x, y, z, atom.Occupancy, atom.BFactor, atom.Element)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if _, err := fmt.Fprintln(w, "END"); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
