// Package registry is the process-wide component catalogue.
//
// Every component type is registered exactly once, before any World creates
// storage for it. Registration derives a stable 128-bit type identifier from
// the registered name, captures a storage factory and a cloner, and records
// the declared field list used when component values cross the script
// boundary. The registry is written during startup and read-only thereafter.
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/lixenwraith/ember/core"
)

// Field describes one guest-visible component field
type Field struct {
	// Name is the guest-visible key (lowerCamel of the Go field name)
	Name string

	// GoName is the Go struct field name
	GoName string

	// Index is the struct field index
	Index int
}

// Entry is the registered metadata for one component type
type Entry struct {
	ID    TypeID
	Name  string
	Type  reflect.Type
	Size  uintptr
	Align uintptr

	// NewColumn creates empty dense storage for this type
	NewColumn func() Column

	// Clone copies a component value into a fresh heap value.
	// Components are value types so the default is a plain value copy
	Clone func(v any) any

	// Fields is the declared field list for script marshalling
	Fields []Field

	// Lerp blends two values for render interpolation; nil when the type
	// is not interpolatable
	Lerp func(a, b any, f float64) any
}

var (
	mu      sync.RWMutex
	byID    = make(map[TypeID]*Entry)
	byName  = make(map[string]*Entry)
	ordered []*Entry
)

// Option customises a registration
type Option func(*Entry)

// WithLerp declares the type interpolatable with the given blend function
func WithLerp[T any](lerp func(a, b T, f float64) T) Option {
	return func(e *Entry) {
		e.Lerp = func(a, b any, f float64) any {
			return lerp(a.(T), b.(T), f)
		}
	}
}

// Register records component type T under the given name.
// Registration is idempotent: repeating it for the same name and type is
// accepted and has no effect. Conflicting metadata for an existing name
// is rejected
func Register[T any](name string, opts ...Option) (TypeID, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Struct {
		return TypeID{}, fmt.Errorf("register %q: component must be a struct type", name)
	}

	mu.Lock()
	defer mu.Unlock()

	if existing, ok := byName[name]; ok {
		if existing.Type != typ {
			return TypeID{}, fmt.Errorf("register %q: already registered as %s, not %s",
				name, existing.Type, typ)
		}
		for _, opt := range opts {
			opt(existing)
		}
		return existing.ID, nil
	}

	entry := &Entry{
		ID:    TypeIDOf(name),
		Name:  name,
		Type:  typ,
		Size:  typ.Size(),
		Align: uintptr(typ.Align()),
		NewColumn: func() Column {
			return &TypedColumn[T]{}
		},
		Clone: func(v any) any {
			return v.(T)
		},
		Fields: deriveFields(typ),
	}
	for _, opt := range opts {
		opt(entry)
	}

	byID[entry.ID] = entry
	byName[name] = entry
	ordered = append(ordered, entry)
	return entry.ID, nil
}

// MustRegister registers T and panics on conflict.
// Used in package init paths where a conflict is a programming error
func MustRegister[T any](name string, opts ...Option) TypeID {
	id, err := Register[T](name, opts...)
	if err != nil {
		panic(err)
	}
	return id
}

// Lookup retrieves the entry for a type identifier
func Lookup(id TypeID) (*Entry, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := byID[id]
	return e, ok
}

// LookupName retrieves the entry for a registered name
func LookupName(name string) (*Entry, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := byName[name]
	return e, ok
}

// MustLookup retrieves an entry or returns the taxonomy error for callers
// that propagate instead of panic
func MustLookup(id TypeID) (*Entry, error) {
	if e, ok := Lookup(id); ok {
		return e, nil
	}
	return nil, &core.ComponentNotRegisteredError{TypeID: id.String()}
}

// IDOf resolves a registered type to its identifier
func IDOf[T any]() (TypeID, bool) {
	var zero T
	typ := reflect.TypeOf(zero)

	mu.RLock()
	defer mu.RUnlock()
	for _, e := range ordered {
		if e.Type == typ {
			return e.ID, true
		}
	}
	return TypeID{}, false
}

// Names returns all registered names in registration order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(ordered))
	for _, e := range ordered {
		names = append(names, e.Name)
	}
	return names
}

// Reset clears the registry. Tests only
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	byID = make(map[TypeID]*Entry)
	byName = make(map[string]*Entry)
	ordered = nil
}

// deriveFields lists exported struct fields as guest-visible names
func deriveFields(typ reflect.Type) []Field {
	fields := make([]Field, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		fields = append(fields, Field{
			Name:   lowerCamel(f.Name),
			GoName: f.Name,
			Index:  i,
		})
	}
	return fields
}

// GuestFieldName returns the guest-visible key for a Go field name.
// Nested struct fields crossing the script boundary use the same
// convention as registered top-level fields
func GuestFieldName(name string) string {
	return lowerCamel(name)
}

func lowerCamel(name string) string {
	if name == "" {
		return name
	}
	b := []byte(name)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
