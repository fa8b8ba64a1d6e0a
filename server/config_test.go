package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Error("empty path should return the defaults")
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	data := `
arena:
  width: 2000
  height: 1200
per_species_count: 20
conversion_delay_ms: 250
seed: 7
species:
  scissors:
    speed_mul: 1.5
    perception: 90
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ArenaWidth != 2000 || cfg.ArenaHeight != 1200 {
		t.Errorf("arena = %gx%g", cfg.ArenaWidth, cfg.ArenaHeight)
	}
	if cfg.PerSpeciesCount != 20 || cfg.ConversionDelayMs != 250 || cfg.Seed != 7 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	sc := cfg.SpeciesParams[Scissors]
	if sc.SpeedMul != 1.5 || sc.Perception != 90 {
		t.Errorf("species override not applied: %+v", sc)
	}
	// Untouched fields keep their defaults
	if sc.Radius != defaultSpeciesParams[Scissors].Radius {
		t.Error("absent species field should keep its default")
	}
	if cfg.ConversionRadius != DefaultConversionRadius {
		t.Error("absent top-level field should keep its default")
	}
}

func TestLoadConfigRejectsUnknownSpecies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	os.WriteFile(path, []byte("species:\n  lizard:\n    radius: 5\n"), 0o644)

	if _, err := LoadConfig(path); err == nil {
		t.Error("unknown species name should be rejected")
	}
}

func TestLoadConfigRejectsInvalidResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	os.WriteFile(path, []byte("per_species_count: 500\n"), 0o644)

	if _, err := LoadConfig(path); err == nil {
		t.Error("overlay exceeding the entity cap should fail validation")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/arena.yaml"); err == nil {
		t.Error("missing file should error")
	}
}
