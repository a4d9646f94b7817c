package parameter

import "time"

// Guest Resource Ceilings
// Enforced per top-level entry into the guest
const (
	// ScriptTimeCeiling is the wall-clock execution budget
	ScriptTimeCeiling = 50 * time.Millisecond

	// ScriptCallStackSize bounds guest recursion depth
	ScriptCallStackSize = 120

	// ScriptRegistrySize bounds the guest VM registry, the dominant
	// guest allocation sink
	ScriptRegistrySize = 1024 * 20

	// ScriptMemoryCeiling bounds bytes marshalled into the guest per call
	ScriptMemoryCeiling = 4 * 1024 * 1024

	// ScriptSourceCeiling bounds compiled source size
	ScriptSourceCeiling = 512 * 1024

	// ScriptStringCeiling bounds any single string argument crossing
	// the host boundary
	ScriptStringCeiling = 4096
)
