package event

// Type identifies an engine event
type Type int

const (
	// === Loop Events ===

	// TypeModeChanged signals a completed loop mode transition
	// Trigger: Loop at frame boundary | Payload: *ModeChangedPayload
	TypeModeChanged Type = iota

	// TypeStepCompleted signals a finished fixed simulation step
	// Trigger: Loop after each fixed pass | Payload: *StepCompletedPayload
	TypeStepCompleted

	// === Script Events ===

	// TypeScriptFault signals a guest fault recorded by the lifecycle system
	// Trigger: script lifecycle system | Payload: *ScriptFaultPayload
	TypeScriptFault

	// TypeScriptReloaded signals a completed script hot reload
	// Trigger: reload coordinator | Payload: *ScriptReloadedPayload
	TypeScriptReloaded

	// === Asset Events ===

	// TypeAssetChanged signals an observed on-disk asset change
	// Trigger: reload coordinator drain | Payload: *AssetChangedPayload
	TypeAssetChanged
)

// Event is one engine event with the frame it was emitted on
type Event struct {
	Type    Type
	Payload any
	Frame   int64
}

// ModeChangedPayload carries a loop mode transition
type ModeChangedPayload struct {
	From, To string
}

// StepCompletedPayload carries fixed-step accounting
type StepCompletedPayload struct {
	Tick uint64
}

// ScriptFaultPayload carries a recorded guest fault
type ScriptFaultPayload struct {
	Script string
	Hook   string
	Err    error
}

// ScriptReloadedPayload carries a completed reload
type ScriptReloadedPayload struct {
	Script string
}

// AssetChangedPayload carries an observed asset change
type AssetChangedPayload struct {
	Path string
	Kind string
}
