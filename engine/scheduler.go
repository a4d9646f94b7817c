package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/lixenwraith/ember/core"
)

// SystemClass selects the cadence a system runs at
type SystemClass int

const (
	// Fixed systems run once per deterministic simulation step
	Fixed SystemClass = iota

	// Variable systems run once per rendered frame with the real delta
	Variable
)

// SystemFunc is the execution callback of a system
type SystemFunc func(w *World, ctx *Context, dt time.Duration) error

// SystemDesc declares a system: stable name, cadence, ordering edges and
// callback. A RunsAfter edge guarantees the named system executed earlier
// in the same step
type SystemDesc struct {
	Name      string
	Class     SystemClass
	RunsAfter []string
	Fn        SystemFunc
}

// Scheduler topologically orders registered systems and drives fixed- and
// variable-rate execution. Systems without an ordering edge between them
// keep insertion order. Execution is strictly sequential
type Scheduler struct {
	mu       sync.Mutex
	systems  []SystemDesc
	order    []int // indexes into systems, dependency-resolved
	resolved bool
	pending  []SystemDesc
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add registers a system. After Resolve the scheduler is sealed and Add
// fails; use AddDeferred for mid-run registration
func (s *Scheduler) Add(desc SystemDesc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		return core.ErrSchedulerSealed
	}
	return s.add(desc)
}

// AddDeferred queues a system for activation at the next frame boundary.
// The current frame's resolved order is never disturbed mid-step
func (s *Scheduler) AddDeferred(desc SystemDesc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, desc)
}

// ActivatePending folds queued systems in and re-resolves.
// Called by the loop at frame boundaries only
func (s *Scheduler) ActivatePending() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	for _, desc := range s.pending {
		if err := s.add(desc); err != nil {
			s.pending = nil
			return err
		}
	}
	s.pending = nil
	s.resolved = false
	return s.resolve()
}

// add validates uniqueness. Caller holds s.mu
func (s *Scheduler) add(desc SystemDesc) error {
	if desc.Name == "" {
		return &core.InvalidInputError{Details: "system name empty"}
	}
	if desc.Fn == nil {
		return &core.InvalidInputError{Details: "system " + desc.Name + " has no callback"}
	}
	for _, have := range s.systems {
		if have.Name == desc.Name {
			return &core.InvalidInputError{Details: "system " + desc.Name + " already registered"}
		}
	}
	s.systems = append(s.systems, desc)
	return nil
}

// Resolve topologically sorts the dependency graph.
// Ties break on insertion order (Kahn's algorithm with an ordered ready
// scan). Fails on unknown predecessors and cycles
func (s *Scheduler) Resolve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve()
}

// resolve implements Resolve. Caller holds s.mu
func (s *Scheduler) resolve() error {
	n := len(s.systems)
	indexOf := make(map[string]int, n)
	for i, sys := range s.systems {
		indexOf[sys.Name] = i
	}

	// successors[i] lists systems that must run after i
	successors := make([][]int, n)
	indegree := make([]int, n)
	for i, sys := range s.systems {
		for _, predName := range sys.RunsAfter {
			pred, ok := indexOf[predName]
			if !ok {
				return &core.UnknownPredecessorError{System: sys.Name, Predecessor: predName}
			}
			successors[pred] = append(successors[pred], i)
			indegree[i]++
		}
	}

	order := make([]int, 0, n)
	done := make([]bool, n)
	for len(order) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			// Everything left participates in a cycle
			var names []string
			for i := 0; i < n; i++ {
				if !done[i] {
					names = append(names, s.systems[i].Name)
				}
			}
			return &core.CyclicDependencyError{Names: names}
		}
		done[next] = true
		order = append(order, next)
		for _, succ := range successors[next] {
			indegree[succ]--
		}
	}

	s.order = order
	s.resolved = true
	return nil
}

// Reopen unseals the scheduler for bulk registration; callers must Resolve
// again before executing
func (s *Scheduler) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = false
}

// ExecuteFixed runs every fixed system in resolved order
func (s *Scheduler) ExecuteFixed(w *World, ctx *Context, dt time.Duration) error {
	return s.execute(Fixed, w, ctx, dt)
}

// ExecuteVariable runs every variable system in resolved order
func (s *Scheduler) ExecuteVariable(w *World, ctx *Context, dt time.Duration) error {
	return s.execute(Variable, w, ctx, dt)
}

// execute runs one classification. On a system error iteration stops and
// the error surfaces; mutations the failing system already committed stay
func (s *Scheduler) execute(class SystemClass, w *World, ctx *Context, dt time.Duration) error {
	s.mu.Lock()
	if !s.resolved {
		s.mu.Unlock()
		return &core.InvalidInputError{Details: "scheduler not resolved"}
	}
	order := make([]int, len(s.order))
	copy(order, s.order)
	systems := s.systems
	s.mu.Unlock()

	for _, idx := range order {
		sys := systems[idx]
		if sys.Class != class {
			continue
		}
		if err := sys.Fn(w, ctx, dt); err != nil {
			return fmt.Errorf("system %s: %w", sys.Name, err)
		}
	}
	return nil
}

// Order returns the resolved execution order of one classification.
// Diagnostic and test helper
func (s *Scheduler) Order(class SystemClass) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for _, idx := range s.order {
		if s.systems[idx].Class == class {
			names = append(names, s.systems[idx].Name)
		}
	}
	return names
}
