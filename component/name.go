package component

// NameComponent is a human-readable label for editor display and script
// queries. Not required to be unique
type NameComponent struct {
	Value string
}
