package engine

import (
	"fmt"
	"time"

	"github.com/lixenwraith/ember/event"
	"github.com/lixenwraith/ember/parameter"
)

// Mode is the loop's play state
type Mode int

const (
	// ModeEditor simulates nothing beyond editor conveniences; the scene
	// is the editable document
	ModeEditor Mode = iota

	// ModeEditorPlay runs the simulation on a saved copy of the editor scene
	ModeEditorPlay

	// ModeStandalonePlay runs the simulation with no editor scene to return to
	ModeStandalonePlay

	// ModePaused freezes fixed updates and game time
	ModePaused
)

// String renders the mode for events and logs
func (m Mode) String() string {
	switch m {
	case ModeEditor:
		return "editor"
	case ModeEditorPlay:
		return "editor-play"
	case ModeStandalonePlay:
		return "standalone-play"
	case ModePaused:
		return "paused"
	}
	return "unknown"
}

// FrameResult reports what one Update accomplished
type FrameResult struct {
	// FixedSteps is the number of fixed simulation steps executed
	FixedSteps int

	// Fraction is the interpolation fraction in [0,1] for render sampling
	Fraction float64

	// Mode is the mode the frame ran in
	Mode Mode
}

// Loop bridges wall-clock time to simulation steps: it accumulates real
// deltas, fires fixed steps while a full step length is banked, caps
// catch-up after a stall, and exposes the leftover fraction so rendering
// can sample between the last two fixed states
type Loop struct {
	world *World
	sched *Scheduler
	ctx   *Context

	step        time.Duration
	maxCatchUp  int
	accumulator time.Duration
	fraction    float64

	mode        Mode
	pendingMode *Mode
	resumeMode  Mode // mode to return to when unpausing

	clock    *PausableClock
	provider TimeProvider
	timeRes  *TimeResource

	editorScene *WorldSnapshot
}

// LoopOption customises loop construction
type LoopOption func(*Loop)

// WithStep overrides the fixed step length
func WithStep(step time.Duration) LoopOption {
	return func(l *Loop) { l.step = step }
}

// WithMaxCatchUp overrides the catch-up iteration ceiling
func WithMaxCatchUp(n int) LoopOption {
	return func(l *Loop) { l.maxCatchUp = n }
}

// WithTimeProvider overrides the clock source (tests)
func WithTimeProvider(p TimeProvider) LoopOption {
	return func(l *Loop) { l.provider = p }
}

// WithMode sets the starting mode
func WithMode(m Mode) LoopOption {
	return func(l *Loop) { l.mode = m }
}

// NewLoop wires a loop over a world, a resolved scheduler and a context
func NewLoop(world *World, sched *Scheduler, ctx *Context, opts ...LoopOption) *Loop {
	l := &Loop{
		world:      world,
		sched:      sched,
		ctx:        ctx,
		step:       parameter.FixedStep,
		maxCatchUp: parameter.MaxCatchUpSteps,
		mode:       ModeEditor,
		resumeMode: ModeEditor,
		provider:   NewMonotonicTimeProvider(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.clock = NewPausableClock(l.provider)

	l.timeRes = &TimeResource{}
	AddResource(world.Resources, l.timeRes)
	return l
}

// Mode returns the active mode
func (l *Loop) Mode() Mode {
	return l.mode
}

// Step returns the fixed step length
func (l *Loop) Step() time.Duration {
	return l.step
}

// RequestMode asks for a transition. Transitions apply at the next frame
// boundary, never mid-step
func (l *Loop) RequestMode(m Mode) {
	l.pendingMode = &m
}

// Update advances the loop by one rendered frame's real delta
func (l *Loop) Update(realDelta time.Duration) (FrameResult, error) {
	if err := l.applyPendingMode(); err != nil {
		return FrameResult{}, err
	}
	if err := l.sched.ActivatePending(); err != nil {
		return FrameResult{}, err
	}

	frame := l.ctx.AdvanceFrame()
	l.timeRes.Update(l.clock.Now(), l.clock.RealTime(), realDelta, frame)

	if l.mode == ModePaused {
		return FrameResult{FixedSteps: 0, Fraction: l.fraction, Mode: l.mode}, nil
	}

	l.accumulator += realDelta

	steps := 0
	for l.accumulator >= l.step {
		if steps >= l.maxCatchUp {
			// Stalled badly: keep the remainder, catch up over the
			// following frames instead of spiralling
			break
		}
		// Swap the interpolation ring before the step so previous holds
		// the last step's snapshot and current receives this step's
		l.ctx.Interp.AdvanceFrame()
		if err := l.sched.ExecuteFixed(l.world, l.ctx, l.step); err != nil {
			return FrameResult{FixedSteps: steps, Fraction: l.fraction, Mode: l.mode}, err
		}
		tick := l.world.AdvanceTick()
		l.ctx.PushEvent(event.TypeStepCompleted, &event.StepCompletedPayload{Tick: uint64(tick)})

		l.accumulator -= l.step
		steps++
	}

	l.fraction = float64(l.accumulator) / float64(l.step)

	if err := l.sched.ExecuteVariable(l.world, l.ctx, realDelta); err != nil {
		return FrameResult{FixedSteps: steps, Fraction: l.fraction, Mode: l.mode}, err
	}
	return FrameResult{FixedSteps: steps, Fraction: l.fraction, Mode: l.mode}, nil
}

// Fraction returns the interpolation fraction of the last frame
func (l *Loop) Fraction() float64 {
	return l.fraction
}

// applyPendingMode performs a requested transition at the frame boundary.
// editor → editor-play saves the scene; the reverse restores it
func (l *Loop) applyPendingMode() error {
	if l.pendingMode == nil {
		return nil
	}
	from, to := l.mode, *l.pendingMode
	l.pendingMode = nil
	if from == to {
		return nil
	}

	switch {
	case from == ModeEditor && to == ModeEditorPlay:
		snap, err := l.world.Snapshot()
		if err != nil {
			return fmt.Errorf("saving editor scene: %w", err)
		}
		l.editorScene = snap

	case from == ModeEditorPlay && to == ModeEditor:
		if l.editorScene != nil {
			if err := l.world.Restore(l.editorScene); err != nil {
				return fmt.Errorf("restoring editor scene: %w", err)
			}
			l.editorScene = nil
		}

	case to == ModePaused:
		l.resumeMode = from
		l.clock.Pause()

	case from == ModePaused:
		l.clock.Resume()
	}

	l.mode = to
	l.ctx.PushEvent(event.TypeModeChanged, &event.ModeChangedPayload{
		From: from.String(),
		To:   to.String(),
	})
	return nil
}

// Resume returns from pause to the mode that was active before it
func (l *Loop) Resume() {
	if l.mode == ModePaused {
		l.RequestMode(l.resumeMode)
	}
}

// Run drives Update at the target frame rate until stop closes.
// The demo binary uses it; tests and editors call Update directly
func (l *Loop) Run(stop <-chan struct{}) error {
	// Deltas come from the ticker's wall-clock timestamps, so the
	// baseline must too; the injected provider only feeds game time
	last := time.Now()
	ticker := time.NewTicker(parameter.FramePacing)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			if delta > parameter.MaxFrameDelta {
				// A debugger pause or OS stall is not simulated time
				delta = parameter.MaxFrameDelta
			}
			last = now
			if _, err := l.Update(delta); err != nil {
				if l.world.Poisoned() {
					return err
				}
				return fmt.Errorf("frame update: %w", err)
			}
		}
	}
}
