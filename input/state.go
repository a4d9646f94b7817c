// Package input is a thread-safe device state store. The presentation
// shell feeds it from its event loop; scripts read it through the
// guest input table.
package input

import (
	"sync"
)

// State implements script.InputProvider over shell-reported events.
type State struct {
	mu      sync.RWMutex
	keys    map[string]bool
	buttons map[int]bool
	mouseX  float64
	mouseY  float64
}

// NewState builds an empty device state.
func NewState() *State {
	return &State{
		keys:    make(map[string]bool),
		buttons: make(map[int]bool),
	}
}

// SetKey records a key transition.
func (s *State) SetKey(name string, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.keys[name] = true
	} else {
		delete(s.keys, name)
	}
}

// SetMouseButton records a button transition.
func (s *State) SetMouseButton(button int, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.buttons[button] = true
	} else {
		delete(s.buttons, button)
	}
}

// SetMousePosition records the pointer location.
func (s *State) SetMousePosition(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mouseX, s.mouseY = x, y
}

// IsKeyPressed reports whether the named key is currently down.
func (s *State) IsKeyPressed(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[name]
}

// MousePosition returns the last reported pointer location.
func (s *State) MousePosition() (x, y float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mouseX, s.mouseY
}

// IsMouseButtonDown reports whether the button is currently down.
func (s *State) IsMouseButtonDown(button int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buttons[button]
}
