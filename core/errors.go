package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no extra context.
// Callers test with errors.Is
var (
	// ErrEntityNotFound signals a stale or never-issued entity handle
	ErrEntityNotFound = errors.New("entity not found")

	// ErrComponentNotInArchetype signals an operation on a component the
	// target entity does not own
	ErrComponentNotInArchetype = errors.New("component not in archetype")

	// ErrWorldPoisoned signals a detected storage invariant violation.
	// Every subsequent operation on the poisoned World fails with it
	ErrWorldPoisoned = errors.New("world poisoned by invariant violation")

	// ErrSchedulerSealed signals a system registration after dependency
	// resolution without reopening the scheduler
	ErrSchedulerSealed = errors.New("scheduler already resolved")
)

// ComponentNotRegisteredError reports a type identifier with no registry entry
type ComponentNotRegisteredError struct {
	TypeID string
}

func (e *ComponentNotRegisteredError) Error() string {
	return fmt.Sprintf("component not registered: %s", e.TypeID)
}

// CyclicDependencyError reports a cycle in the scheduler dependency graph
type CyclicDependencyError struct {
	Names []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic system dependency: %v", e.Names)
}

// UnknownPredecessorError reports a runs-after edge naming an unregistered system
type UnknownPredecessorError struct {
	System      string
	Predecessor string
}

func (e *UnknownPredecessorError) Error() string {
	return fmt.Sprintf("system %q runs after unknown system %q", e.System, e.Predecessor)
}

// InvalidFactorError reports an interpolation factor outside [0,1]
type InvalidFactorError struct {
	Factor float64
}

func (e *InvalidFactorError) Error() string {
	return fmt.Sprintf("interpolation factor %v outside [0,1]", e.Factor)
}

// Permission names a capability a script must hold to invoke a host operation
type Permission string

const (
	PermFileRead       Permission = "FileRead"
	PermFileWrite      Permission = "FileWrite"
	PermConsoleWrite   Permission = "ConsoleWrite"
	PermEntityCreate   Permission = "EntityCreate"
	PermComponentWrite Permission = "ComponentWrite"
	PermSceneQuery     Permission = "SceneQuery"
	PermNetworkAccess  Permission = "NetworkAccess"
)

// PermissionDeniedError reports a capability gate rejection
type PermissionDeniedError struct {
	Permission Permission
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Permission)
}

// CeilingKind identifies which guest resource ceiling was breached
type CeilingKind string

const (
	CeilingTime      CeilingKind = "Time"
	CeilingMemory    CeilingKind = "Memory"
	CeilingRecursion CeilingKind = "Recursion"
	CeilingInputSize CeilingKind = "InputSize"
)

// CeilingExceededError reports a guest resource ceiling breach
type CeilingExceededError struct {
	Kind CeilingKind
}

func (e *CeilingExceededError) Error() string {
	return fmt.Sprintf("resource ceiling exceeded: %s", e.Kind)
}

// CompileError reports a guest compilation failure with source position
type CompileError struct {
	Script  string
	Line    int
	Column  int
	Details string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("script %s:%d:%d: compile failed: %s", e.Script, e.Line, e.Column, e.Details)
	}
	return fmt.Sprintf("script %s: compile failed: %s", e.Script, e.Details)
}

// RuntimeFaultError reports a guest runtime failure
type RuntimeFaultError struct {
	Script  string
	Details string
	Cause   error
}

func (e *RuntimeFaultError) Error() string {
	return fmt.Sprintf("script %s: runtime fault: %s", e.Script, e.Details)
}

// Unwrap exposes the underlying cause so ceiling breaches surfaced through
// faults remain visible to errors.Is/As
func (e *RuntimeFaultError) Unwrap() error { return e.Cause }

// InvalidInputError reports argument validation failure before any side effect
type InvalidInputError struct {
	Details string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Details)
}

// FileSystemError wraps an underlying I/O failure with the offending path
type FileSystemError struct {
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("filesystem error at %s: %v", e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }
