package sim

import "math"

// maxPolicySubsteps caps the count a policy can report before the driver's own clamp applies.
const maxPolicySubsteps = 1 << 20

// FixedSubstepPolicy splits a frame into whole substeps of a fixed duration.
// Leftover time shorter than one substep is dropped. Non-positive or NaN inputs yield zero substeps.
//
// Parameters:
//   - frameDt: the frame delta in seconds
//   - substepDt: the fixed substep duration in seconds
//
// Returns:
//   - int: floor(frameDt / substepDt)
//   - float32: substepDt
func FixedSubstepPolicy(frameDt, substepDt float32) (int, float32) {
	if !(frameDt > 0) || !(substepDt > 0) || math.IsInf(float64(substepDt), 0) {
		return 0, substepDt
	}
	n := math.Floor(float64(frameDt / substepDt))
	if n >= maxPolicySubsteps || math.IsInf(n, 0) || math.IsNaN(n) {
		return maxPolicySubsteps, substepDt
	}
	return int(n), substepDt
}

// WholeFrameSubstepPolicy runs one substep covering the whole frame, or none for a non-positive delta.
func WholeFrameSubstepPolicy(frameDt float32) (int, float32) {
	if !(frameDt > 0) || math.IsInf(float64(frameDt), 0) {
		return 0, 0
	}
	return 1, frameDt
}

// StaticSubstepPolicy never runs a substep.
func StaticSubstepPolicy(float32) (int, float32) {
	return 0, 0
}
