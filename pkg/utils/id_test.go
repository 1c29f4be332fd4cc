package utils

import (
	"strings"
	"testing"
)

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	if id1 == "" {
		t.Error("GenerateRunID returned empty string")
	}

	if id1 == id2 {
		t.Error("GenerateRunID should return unique IDs")
	}

	if !strings.HasPrefix(id1, "run-") {
		t.Errorf("GenerateRunID should start with 'run-': %s", id1)
	}

	// timestamp plus random suffix: run-YYYYMMDD-HHMMSS-xxxxxxxx
	parts := strings.Split(id1, "-")
	if len(parts) != 4 {
		t.Errorf("GenerateRunID should have 4 parts: %s", id1)
	}
}

func TestRunIDUniqueness(t *testing.T) {
	numIDs := 1000
	ids := make(map[string]bool)

	for i := 0; i < numIDs; i++ {
		id := GenerateRunID()
		if ids[id] {
			t.Errorf("Duplicate ID generated: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

func TestSampleDirName(t *testing.T) {
	if got := SampleDirName(0, 3); got != "round_0/sample_3" {
		t.Errorf("Expected 'round_0/sample_3', got '%s'", got)
	}
	if got := SampleDirName(12, 0); got != "round_12/sample_0" {
		t.Errorf("Expected 'round_12/sample_0', got '%s'", got)
	}
}

func TestRoundDirName(t *testing.T) {
	if got := RoundDirName(7); got != "round_7" {
		t.Errorf("Expected 'round_7', got '%s'", got)
	}
}
