package registry

import (
	"bytes"
	"encoding/hex"
	"hash/fnv"
)

// TypeID is the stable 128-bit component type identifier.
// Derived from the registered name, so it survives process restarts and
// is identical across builds
type TypeID [16]byte

// TypeIDOf derives the identifier for a registered name (FNV-1a 128)
func TypeIDOf(name string) TypeID {
	h := fnv.New128a()
	h.Write([]byte(name))
	var id TypeID
	h.Sum(id[:0])
	return id
}

// String renders the identifier as hex for errors and persisted metadata
func (id TypeID) String() string {
	return hex.EncodeToString(id[:])
}

// Less imposes the canonical signature ordering
func (id TypeID) Less(other TypeID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}
