package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID generates a run ID with a timestamp prefix, e.g.
// "run-20250114-093012-1b9d6bcd". The suffix comes from a random UUID so
// concurrent batch items started in the same second stay distinct.
func GenerateRunID() string {
	timestamp := time.Now().Format("20060102-150405")
	return fmt.Sprintf("run-%s-%s", timestamp, uuid.NewString()[:8])
}

// SampleDirName returns the working directory name for one sample of one
// round. The layout is deterministic so reruns are inspectable.
func SampleDirName(round, sampleID int) string {
	return fmt.Sprintf("round_%d/sample_%d", round, sampleID)
}

// RoundDirName returns the directory name for one round.
func RoundDirName(round int) string {
	return fmt.Sprintf("round_%d", round)
}
