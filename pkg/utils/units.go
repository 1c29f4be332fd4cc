package utils

// Structure files carry coordinates in Ångströms (PDB) or nanometers (GRO);
// all distances inside the control loop are nanometers. The simulation-branch
// threshold is configured in Ångströms, matching the source tooling.

// AngstromToNm converts a length in Ångströms to nanometers.
func AngstromToNm(a float64) float64 {
	return a / 10.0
}

// NmToAngstrom converts a length in nanometers to Ångströms.
func NmToAngstrom(nm float64) float64 {
	return nm * 10.0
}
