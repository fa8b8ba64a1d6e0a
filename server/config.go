package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultArenaWidth        = 1600.0
	DefaultArenaHeight       = 1000.0
	DefaultPerSpeciesCount   = 33 // ~100 agents total
	DefaultConversionRadius  = 20.0
	DefaultAvoidRadius       = 80.0
	DefaultConversionDelayMs = 500.0
	DefaultDurationMs        = 300000.0 // 5 minute cap
	SpawnMargin              = 60.0
	MaxEntities              = 400
)

// Config holds everything needed to construct a battle. Zero values are
// not valid; start from DefaultConfig and override.
type Config struct {
	ArenaWidth        float64
	ArenaHeight       float64
	PerSpeciesCount   int
	ConversionRadius  float64
	AvoidRadius       float64
	ConversionDelayMs float64
	DurationMs        float64
	Restitution       float64
	Seed              int64
	SpeciesParams     [speciesCount]SpeciesParams
}

// DefaultConfig returns the built-in tuning
func DefaultConfig() Config {
	return Config{
		ArenaWidth:        DefaultArenaWidth,
		ArenaHeight:       DefaultArenaHeight,
		PerSpeciesCount:   DefaultPerSpeciesCount,
		ConversionRadius:  DefaultConversionRadius,
		AvoidRadius:       DefaultAvoidRadius,
		ConversionDelayMs: DefaultConversionDelayMs,
		DurationMs:        DefaultDurationMs,
		Restitution:       DefaultRestitution,
		Seed:              1,
		SpeciesParams:     defaultSpeciesParams,
	}
}

// Validate rejects degenerate configurations before any entity exists
func (c *Config) Validate() error {
	if c.ArenaWidth < 4*SpawnMargin || c.ArenaHeight < 4*SpawnMargin {
		return fmt.Errorf("arena %gx%g too small", c.ArenaWidth, c.ArenaHeight)
	}
	if c.PerSpeciesCount <= 0 {
		return fmt.Errorf("per-species count must be positive, got %d", c.PerSpeciesCount)
	}
	if c.PerSpeciesCount*int(speciesCount) > MaxEntities {
		return fmt.Errorf("per-species count %d exceeds %d total entities", c.PerSpeciesCount, MaxEntities)
	}
	if c.ConversionRadius <= 0 {
		return fmt.Errorf("conversion radius must be positive")
	}
	if c.AvoidRadius <= 0 {
		return fmt.Errorf("avoidance radius must be positive")
	}
	if c.ConversionDelayMs < 0 {
		return fmt.Errorf("conversion delay cannot be negative")
	}
	if c.DurationMs <= 0 {
		return fmt.Errorf("battle duration must be positive")
	}
	if c.Restitution < 0 || c.Restitution > 1 {
		return fmt.Errorf("restitution must be in [0,1], got %g", c.Restitution)
	}
	for s := Species(0); s < speciesCount; s++ {
		p := c.SpeciesParams[s]
		if p.Perception <= 0 || p.Radius <= 0 || p.SpeedMul <= 0 || p.MaxHealth <= 0 {
			return fmt.Errorf("invalid parameters for species %s", s)
		}
	}
	return nil
}

// File layout for the optional YAML tuning file. Zero/absent fields keep
// their defaults.
type fileConfig struct {
	Arena struct {
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"arena"`
	PerSpeciesCount   int                       `yaml:"per_species_count"`
	ConversionRadius  float64                   `yaml:"conversion_radius"`
	AvoidRadius       float64                   `yaml:"avoid_radius"`
	ConversionDelayMs float64                   `yaml:"conversion_delay_ms"`
	DurationMs        float64                   `yaml:"duration_ms"`
	Restitution       float64                   `yaml:"restitution"`
	Seed              int64                     `yaml:"seed"`
	Species           map[string]fileSpeciesDef `yaml:"species"`
}

type fileSpeciesDef struct {
	Perception float64 `yaml:"perception"`
	Radius     float64 `yaml:"radius"`
	SpeedMul   float64 `yaml:"speed_mul"`
	GroupBias  float64 `yaml:"group_bias"`
	GroupRange float64 `yaml:"group_range"`
	MaxHealth  int     `yaml:"max_health"`
}

// LoadConfig overlays a YAML tuning file onto the defaults and validates
// the result. An empty path returns the validated defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if fc.Arena.Width > 0 {
		cfg.ArenaWidth = fc.Arena.Width
	}
	if fc.Arena.Height > 0 {
		cfg.ArenaHeight = fc.Arena.Height
	}
	if fc.PerSpeciesCount > 0 {
		cfg.PerSpeciesCount = fc.PerSpeciesCount
	}
	if fc.ConversionRadius > 0 {
		cfg.ConversionRadius = fc.ConversionRadius
	}
	if fc.AvoidRadius > 0 {
		cfg.AvoidRadius = fc.AvoidRadius
	}
	if fc.ConversionDelayMs > 0 {
		cfg.ConversionDelayMs = fc.ConversionDelayMs
	}
	if fc.DurationMs > 0 {
		cfg.DurationMs = fc.DurationMs
	}
	if fc.Restitution > 0 {
		cfg.Restitution = fc.Restitution
	}
	if fc.Seed != 0 {
		cfg.Seed = fc.Seed
	}
	for name, def := range fc.Species {
		s, ok := ParseSpecies(name)
		if !ok {
			return cfg, fmt.Errorf("unknown species %q in config", name)
		}
		p := &cfg.SpeciesParams[s]
		if def.Perception > 0 {
			p.Perception = def.Perception
		}
		if def.Radius > 0 {
			p.Radius = def.Radius
		}
		if def.SpeedMul > 0 {
			p.SpeedMul = def.SpeedMul
		}
		if def.GroupBias != 0 {
			p.GroupBias = def.GroupBias
		}
		if def.GroupRange > 0 {
			p.GroupRange = def.GroupRange
		}
		if def.MaxHealth > 0 {
			p.MaxHealth = def.MaxHealth
		}
	}

	return cfg, cfg.Validate()
}
