package engine

import (
	"sort"

	"github.com/lixenwraith/ember/registry"
)

// signature is a canonical sorted set of component type identifiers.
// Insertion order never affects identity: two signatures holding the same
// types compare equal through their key
type signature []registry.TypeID

// newSignature sorts and deduplicates the given identifiers
func newSignature(ids ...registry.TypeID) signature {
	sig := make(signature, 0, len(ids))
	sig = append(sig, ids...)
	sort.Slice(sig, func(i, j int) bool { return sig[i].Less(sig[j]) })

	// Dedup in place
	out := sig[:0]
	for i, id := range sig {
		if i == 0 || id != sig[i-1] {
			out = append(out, id)
		}
	}
	return out
}

// key renders the canonical map key for archetype identity
func (s signature) key() string {
	buf := make([]byte, 0, len(s)*16)
	for _, id := range s {
		buf = append(buf, id[:]...)
	}
	return string(buf)
}

// contains reports membership in the sorted set
func (s signature) contains(id registry.TypeID) bool {
	i := sort.Search(len(s), func(i int) bool { return !s[i].Less(id) })
	return i < len(s) && s[i] == id
}

// superset reports whether every id of sub is present in s
func (s signature) superset(sub signature) bool {
	for _, id := range sub {
		if !s.contains(id) {
			return false
		}
	}
	return true
}

// with returns the canonical union s ∪ {id}
func (s signature) with(id registry.TypeID) signature {
	if s.contains(id) {
		return s
	}
	next := make(signature, 0, len(s)+1)
	next = append(next, s...)
	next = append(next, id)
	sort.Slice(next, func(i, j int) bool { return next[i].Less(next[j]) })
	return next
}

// without returns the canonical difference s \ {id}
func (s signature) without(id registry.TypeID) signature {
	next := make(signature, 0, len(s))
	for _, have := range s {
		if have != id {
			next = append(next, have)
		}
	}
	return next
}
