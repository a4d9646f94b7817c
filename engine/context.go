package engine

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/ember/event"
	"github.com/lixenwraith/ember/status"
)

// Context is the mutable per-run context handed to every system alongside
// the World. It carries the interpolation layer, the engine event queue,
// the script-facing bus and telemetry
type Context struct {
	Interp *Interpolation
	Events *event.Queue
	Bus    *event.Bus
	Status *status.Registry

	frame atomic.Int64
}

// NewContext wires a context with fresh infrastructure
func NewContext() *Context {
	return &Context{
		Interp: NewInterpolation(),
		Events: event.NewQueue(),
		Bus:    event.NewBus(),
		Status: status.NewRegistry(),
	}
}

// Frame returns the current frame number
func (c *Context) Frame() int64 {
	return c.frame.Load()
}

// AdvanceFrame bumps and returns the frame number. Loop only
func (c *Context) AdvanceFrame() int64 {
	return c.frame.Add(1)
}

// PushEvent emits an engine event stamped with the current frame
func (c *Context) PushEvent(t event.Type, payload any) {
	c.Events.Push(event.Event{
		Type:    t,
		Payload: payload,
		Frame:   c.frame.Load(),
	})
}

// TimeResource wraps time data for systems.
// The loop updates it in place at the start of every frame
type TimeResource struct {
	// GameTime is the current time in the game world (affected by pause)
	GameTime time.Time

	// RealTime is the wall-clock time (unaffected by pause)
	RealTime time.Time

	// DeltaTime is the duration since the last update
	DeltaTime time.Duration

	// FrameNumber is the current frame count
	FrameNumber int64
}

// Update modifies TimeResource fields in place (zero allocation).
// Must be called before systems read it in the same frame
func (tr *TimeResource) Update(gameTime, realTime time.Time, deltaTime time.Duration, frameNumber int64) {
	tr.GameTime = gameTime
	tr.RealTime = realTime
	tr.DeltaTime = deltaTime
	tr.FrameNumber = frameNumber
}
