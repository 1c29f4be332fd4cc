package archive

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

func TestOfferKeepsTopK(t *testing.T) {
	a := New(5)
	distances := []float64{0.9, 0.3, 1.2, 0.1, 0.5, 0.2, 0.4}
	for i, d := range distances {
		a.Offer(Entry{Distance: d, Round: 0, SampleID: i, StructurePath: fmt.Sprintf("s%d.pdb", i)})
	}

	entries := a.Entries()
	if len(entries) != 5 {
		t.Fatalf("expected 5 retained entries, got %d", len(entries))
	}
	want := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
	for i, e := range entries {
		if e.Distance != want[i] {
			t.Fatalf("rank %d: expected distance %v, got %v", i+1, want[i], e.Distance)
		}
	}
}

func TestOfferRejectsBeyondCapacity(t *testing.T) {
	a := New(2)
	if !a.Offer(Entry{Distance: 0.5, StructurePath: "a.pdb"}) {
		t.Fatalf("first offer rejected")
	}
	if !a.Offer(Entry{Distance: 0.3, StructurePath: "b.pdb"}) {
		t.Fatalf("second offer rejected")
	}
	if a.Offer(Entry{Distance: 0.9, StructurePath: "c.pdb"}) {
		t.Fatalf("offer worse than the full archive was retained")
	}
	if !a.Offer(Entry{Distance: 0.1, StructurePath: "d.pdb"}) {
		t.Fatalf("offer better than the worst entry was rejected")
	}
	entries := a.Entries()
	if entries[0].Distance != 0.1 || entries[1].Distance != 0.3 {
		t.Fatalf("unexpected retained set: %+v", entries)
	}
}

func TestOfferDeduplicatesByPath(t *testing.T) {
	a := New(5)
	a.Offer(Entry{Distance: 0.5, StructurePath: "same.pdb"})
	if a.Offer(Entry{Distance: 0.1, StructurePath: "same.pdb"}) {
		t.Fatalf("duplicate path retained")
	}
	if a.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", a.Len())
	}
}

func TestOfferTieStability(t *testing.T) {
	a := New(5)
	a.Offer(Entry{Distance: 0.5, SampleID: 0, StructurePath: "first.pdb"})
	a.Offer(Entry{Distance: 0.5, SampleID: 1, StructurePath: "second.pdb"})

	entries := a.Entries()
	if entries[0].StructurePath != "first.pdb" {
		t.Fatalf("earlier offer lost the tie: %+v", entries)
	}
}

func TestBestAndLen(t *testing.T) {
	a := New(3)
	if _, ok := a.Best(); ok {
		t.Fatalf("empty archive reported a best entry")
	}
	a.Offer(Entry{Distance: 0.7, StructurePath: "x.pdb"})
	a.Offer(Entry{Distance: 0.2, StructurePath: "y.pdb"})
	best, ok := a.Best()
	if !ok || best.Distance != 0.2 {
		t.Fatalf("unexpected best: %+v ok=%v", best, ok)
	}
	if a.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", a.Len())
	}
}

func TestNewDefaultCapacity(t *testing.T) {
	a := New(0)
	for i := 0; i < DefaultCapacity+3; i++ {
		a.Offer(Entry{Distance: float64(i), StructurePath: fmt.Sprintf("s%d.pdb", i)})
	}
	if a.Len() != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, a.Len())
	}
}

func TestPersist(t *testing.T) {
	src := t.TempDir()
	structure := filepath.Join(src, "final.pdb")
	if err := os.WriteFile(structure, []byte("ATOM\nEND\n"), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	traj := filepath.Join(src, "md.xtc")
	if err := os.WriteFile(traj, []byte(strings.Repeat("frame", 100)), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	a := New(3)
	a.Offer(Entry{Distance: 0.42, Round: 2, SampleID: 1, StructurePath: structure, TrajectoryPath: traj})

	dir := filepath.Join(t.TempDir(), "archive")
	if err := a.Persist(dir); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	copied := filepath.Join(dir, "best_1_round2_sample1.pdb")
	if _, err := os.Stat(copied); err != nil {
		t.Fatalf("persisted structure missing: %v", err)
	}

	compressed := filepath.Join(dir, "best_1_round2_sample1.xtc.zst")
	data, err := os.ReadFile(compressed)
	if err != nil {
		t.Fatalf("compressed trajectory missing: %v", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if string(raw) != strings.Repeat("frame", 100) {
		t.Fatalf("trajectory content changed through compression")
	}

	var m manifest
	mdata, err := os.ReadFile(filepath.Join(dir, "archive.yaml"))
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	if err := yaml.Unmarshal(mdata, &m); err != nil {
		t.Fatalf("manifest unmarshal: %v", err)
	}
	if m.Capacity != 3 || len(m.Entries) != 1 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	if m.Entries[0].StructurePath != copied {
		t.Fatalf("manifest points at %s, want %s", m.Entries[0].StructurePath, copied)
	}
	if math.Abs(m.Entries[0].Distance-0.42) > 1e-12 {
		t.Fatalf("manifest distance changed: %v", m.Entries[0].Distance)
	}
}

func TestPersistMissingTrajectoryDegrades(t *testing.T) {
	src := t.TempDir()
	structure := filepath.Join(src, "final.pdb")
	if err := os.WriteFile(structure, []byte("ATOM\nEND\n"), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	a := New(3)
	a.Offer(Entry{Distance: 0.5, StructurePath: structure, TrajectoryPath: filepath.Join(src, "gone.xtc")})

	dir := filepath.Join(t.TempDir(), "archive")
	if err := a.Persist(dir); err != nil {
		t.Fatalf("Persist must not fail on a missing trajectory: %v", err)
	}

	var m manifest
	mdata, err := os.ReadFile(filepath.Join(dir, "archive.yaml"))
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	if err := yaml.Unmarshal(mdata, &m); err != nil {
		t.Fatalf("manifest unmarshal: %v", err)
	}
	if m.Entries[0].TrajectoryPath != "" {
		t.Fatalf("manifest references a trajectory that was not persisted")
	}
}
