// Package audio plays short procedural cues through the system mixer.
// The engine core emits events; shells map the ones they care about to
// cues. Initialisation failure is non-fatal: cues become no-ops.
package audio

import (
	"log"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Player owns mixer initialisation and cue playback.
type Player struct {
	ready bool
}

// NewPlayer initialises the speaker. On failure the player stays
// usable and silent.
func NewPlayer() *Player {
	p := &Player{}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		log.Printf("audio init failed: %v", err)
		return p
	}
	p.ready = true
	return p
}

// Tone plays a sine cue of the given frequency and length.
func (p *Player) Tone(freq float64, length time.Duration) {
	if !p.ready {
		return
	}
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(length), sine))
}

// ReloadCue is the script hot-reload confirmation.
func (p *Player) ReloadCue() {
	p.Tone(880, 80*time.Millisecond)
}

// FaultCue flags a recorded guest fault.
func (p *Player) FaultCue() {
	p.Tone(220, 120*time.Millisecond)
}
