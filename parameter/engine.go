package parameter

import "time"

// Simulation Timing
const (
	// SimulationRate is the target fixed steps per second
	SimulationRate = 60

	// FixedStep is the deterministic step length derived from the rate
	FixedStep = time.Second / SimulationRate

	// MaxCatchUpSteps caps fixed steps per rendered frame after a stall.
	// Leftover accumulator is preserved and drained over later frames
	MaxCatchUpSteps = 5

	// FramePacing is the render-side tick interval for the paced driver
	FramePacing = time.Second / 120

	// MaxFrameDelta clamps a single frame's real delta.
	// Protects against debugger pauses and OS stalls
	MaxFrameDelta = 250 * time.Millisecond
)
