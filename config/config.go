// Package config loads engine settings from a YAML file, falling back
// to the tuned defaults in parameter for anything unset.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/parameter"
)

// Simulation tunes the hybrid loop.
type Simulation struct {
	// RateHz is the fixed-step frequency
	RateHz int `yaml:"rateHz"`

	// MaxCatchUpSteps caps fixed steps per frame after a stall
	MaxCatchUpSteps int `yaml:"maxCatchUpSteps"`
}

// Scripting tunes the guest resource ceilings.
type Scripting struct {
	TimeCeilingMS   int `yaml:"timeCeilingMs"`
	MemoryCeilingKB int `yaml:"memoryCeilingKb"`
	CallStackSize   int `yaml:"callStackSize"`
	SourceCeilingKB int `yaml:"sourceCeilingKb"`
}

// Content locates the asset tree.
type Content struct {
	// Root is the watched content directory
	Root string `yaml:"root"`

	// Catalog is the persisted asset metadata file
	Catalog string `yaml:"catalog"`
}

// Config is the full engine configuration.
type Config struct {
	Simulation Simulation `yaml:"simulation"`
	Scripting  Scripting  `yaml:"scripting"`
	Content    Content    `yaml:"content"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Simulation: Simulation{
			RateHz:          parameter.SimulationRate,
			MaxCatchUpSteps: parameter.MaxCatchUpSteps,
		},
		Scripting: Scripting{
			TimeCeilingMS:   int(parameter.ScriptTimeCeiling / time.Millisecond),
			MemoryCeilingKB: parameter.ScriptMemoryCeiling / 1024,
			CallStackSize:   parameter.ScriptCallStackSize,
			SourceCeilingKB: parameter.ScriptSourceCeiling / 1024,
		},
		Content: Content{
			Root:    "content",
			Catalog: "content/assets.yaml",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file is not an
// error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, &core.FileSystemError{Path: path, Err: err}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), &core.InvalidInputError{Details: "config " + path + ": " + err.Error()}
	}
	if cfg.Simulation.RateHz <= 0 {
		cfg.Simulation.RateHz = parameter.SimulationRate
	}
	if cfg.Simulation.MaxCatchUpSteps <= 0 {
		cfg.Simulation.MaxCatchUpSteps = parameter.MaxCatchUpSteps
	}
	return cfg, nil
}

// Step converts the configured rate to a fixed step length.
func (c Config) Step() time.Duration {
	return time.Second / time.Duration(c.Simulation.RateHz)
}

// TimeCeiling converts the configured guest time budget to a duration.
func (c Config) TimeCeiling() time.Duration {
	return time.Duration(c.Scripting.TimeCeilingMS) * time.Millisecond
}
