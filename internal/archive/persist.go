package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/smc-ppi/sumd-core/pkg/logger"
)

// manifest is the on-disk metadata record written next to the retained files.
type manifest struct {
	Capacity int     `yaml:"capacity"`
	Entries  []Entry `yaml:"entries"`
}

// Persist copies the retained structures into dir in rank order, compresses
// any retained trajectories and writes an archive.yaml manifest. The manifest
// paths point at the persisted copies, not the per-sample working files.
func (a *Archive) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive dir: %w", err)
	}

	entries := a.Entries()
	persisted := make([]Entry, 0, len(entries))
	for rank, e := range entries {
		dst := filepath.Join(dir, fmt.Sprintf("best_%d_round%d_sample%d%s",
			rank+1, e.Round, e.SampleID, filepath.Ext(e.StructurePath)))
		if err := copyFile(e.StructurePath, dst); err != nil {
			return fmt.Errorf("failed to persist structure %s: %w", e.StructurePath, err)
		}
		out := e
		out.StructurePath = dst

		if e.TrajectoryPath != "" {
			cdst := filepath.Join(dir, fmt.Sprintf("best_%d_round%d_sample%d%s.zst",
				rank+1, e.Round, e.SampleID, filepath.Ext(e.TrajectoryPath)))
			if err := compressFile(e.TrajectoryPath, cdst); err != nil {
				// A missing trajectory degrades the archive, not the run.
				logger.Warn("trajectory compression failed", "path", e.TrajectoryPath, "error", err)
				out.TrajectoryPath = ""
			} else {
				out.TrajectoryPath = cdst
			}
		}
		persisted = append(persisted, out)
	}

	data, err := yaml.Marshal(manifest{Capacity: a.cap, Entries: persisted})
	if err != nil {
		return fmt.Errorf("failed to marshal archive manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "archive.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive manifest: %w", err)
	}
	return nil
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

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
