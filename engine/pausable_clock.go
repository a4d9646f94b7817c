package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// PausableClock provides game time that freezes while paused.
// Real time keeps flowing; game time excludes the cumulative pause span
type PausableClock struct {
	mu sync.RWMutex

	realStartTime time.Time // when the clock was created (real time)
	gameStartTime time.Time // game time epoch, adjusted for pauses

	isPaused        atomic.Bool
	pauseStartTime  time.Time     // when the current pause began (real time)
	totalPausedTime time.Duration // cumulative pause duration

	provider TimeProvider
}

// NewPausableClock creates a running clock on the given provider
func NewPausableClock(provider TimeProvider) *PausableClock {
	now := provider.Now()
	return &PausableClock{
		realStartTime: now,
		gameStartTime: now,
		provider:      provider,
	}
}

// Now returns current game time (frozen during pause)
func (pc *PausableClock) Now() time.Time {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.isPaused.Load() {
		return pc.gameStartTime.Add(pc.pauseStartTime.Sub(pc.realStartTime) - pc.totalPausedTime)
	}

	realElapsed := pc.provider.Now().Sub(pc.realStartTime)
	return pc.gameStartTime.Add(realElapsed - pc.totalPausedTime)
}

// RealTime returns the wall clock, unaffected by pause
func (pc *PausableClock) RealTime() time.Time {
	return pc.provider.Now()
}

// Pause stops game time advancement
func (pc *PausableClock) Pause() {
	if pc.isPaused.CompareAndSwap(false, true) {
		pc.mu.Lock()
		defer pc.mu.Unlock()
		pc.pauseStartTime = pc.provider.Now()
	}
}

// Resume continues game time advancement
func (pc *PausableClock) Resume() {
	if pc.isPaused.CompareAndSwap(true, false) {
		pc.mu.Lock()
		defer pc.mu.Unlock()

		if !pc.pauseStartTime.IsZero() {
			pc.totalPausedTime += pc.provider.Now().Sub(pc.pauseStartTime)
			pc.pauseStartTime = time.Time{}
		}
	}
}

// IsPaused returns current pause state
func (pc *PausableClock) IsPaused() bool {
	return pc.isPaused.Load()
}

// TotalPauseDuration returns cumulative pause time including a pause in
// progress
func (pc *PausableClock) TotalPauseDuration() time.Duration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	total := pc.totalPausedTime
	if pc.isPaused.Load() && !pc.pauseStartTime.IsZero() {
		total += pc.provider.Now().Sub(pc.pauseStartTime)
	}
	return total
}
