package component

// ScriptComponent attaches a guest script module to an entity.
// The script lifecycle system drives the module's init, update and
// destroy hooks against this entity
type ScriptComponent struct {
	// Module is the script identifier in the host
	Module string

	// Started records that init ran; cleared on hot reload when the
	// module asks for re-initialisation
	Started bool
}
