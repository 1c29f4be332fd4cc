package utils

import "testing"

func TestUnitConversions(t *testing.T) {
	if got := AngstromToNm(5.0); got != 0.5 {
		t.Errorf("AngstromToNm(5.0) = %v, want 0.5", got)
	}
	if got := NmToAngstrom(0.5); got != 5.0 {
		t.Errorf("NmToAngstrom(0.5) = %v, want 5.0", got)
	}

	// round trip
	if got := NmToAngstrom(AngstromToNm(7.3)); got != 7.3 {
		t.Errorf("round trip changed the value: %v", got)
	}
}
