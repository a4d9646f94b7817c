package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lixenwraith/ember/parameter"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected missing file to be fine, got %v", err)
	}
	if cfg.Simulation.RateHz != parameter.SimulationRate {
		t.Errorf("Expected default rate %d, got %d", parameter.SimulationRate, cfg.Simulation.RateHz)
	}
	if cfg.Content.Root != "content" {
		t.Errorf("Expected default content root, got %s", cfg.Content.Root)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.yaml")
	doc := `
simulation:
  rateHz: 30
scripting:
  timeCeilingMs: 100
content:
  root: game/content
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Simulation.RateHz != 30 {
		t.Errorf("Expected rate 30, got %d", cfg.Simulation.RateHz)
	}
	if cfg.Step() != time.Second/30 {
		t.Errorf("Expected ~33ms step, got %v", cfg.Step())
	}
	if cfg.TimeCeiling() != 100*time.Millisecond {
		t.Errorf("Expected 100ms ceiling, got %v", cfg.TimeCeiling())
	}
	if cfg.Content.Root != "game/content" {
		t.Errorf("Expected overridden root, got %s", cfg.Content.Root)
	}
	// Unset sections keep their defaults
	if cfg.Simulation.MaxCatchUpSteps != parameter.MaxCatchUpSteps {
		t.Errorf("Expected default catch-up cap, got %d", cfg.Simulation.MaxCatchUpSteps)
	}
	if cfg.Scripting.CallStackSize != parameter.ScriptCallStackSize {
		t.Errorf("Expected default call stack size, got %d", cfg.Scripting.CallStackSize)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("simulation: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}

func TestInvalidRateFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.yaml")
	if err := os.WriteFile(path, []byte("simulation:\n  rateHz: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Simulation.RateHz != parameter.SimulationRate {
		t.Errorf("Expected fallback rate, got %d", cfg.Simulation.RateHz)
	}
}
