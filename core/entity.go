package core

import "fmt"

// Entity is a generational handle to a logical game object.
// The zero value is never issued by a World and always fails resolution.
type Entity struct {
	Slot       uint32
	Generation uint32
}

// IsZero reports whether the handle is the never-issued zero handle
func (e Entity) IsZero() bool {
	return e.Slot == 0 && e.Generation == 0
}

// String formats the handle for logs and error messages
func (e Entity) String() string {
	return fmt.Sprintf("entity(%d:%d)", e.Slot, e.Generation)
}

// Tick is the monotonic change counter incremented once per scheduler step.
// Component rows record the tick of their insertion and last mutation
type Tick uint64
