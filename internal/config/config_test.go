package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/finance-datagen/internal/persona"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datagen.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Generation.Population != 50 || c.Generation.WindowDays != 180 || c.Generation.LowRiskQuota != 2 {
		t.Errorf("unexpected defaults: %+v", c.Generation)
	}
	if c.Output.Dir != "out" || c.Log.Level != "info" {
		t.Errorf("unexpected defaults: output=%+v log=%+v", c.Output, c.Log)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
generation:
  population: 200
  seed: 7
  as_of: "2025-06-30"
  weights:
    high_utilization: 0.4
    savings_builder: 0.6
personas:
  balanced_stable:
    utilization: {min: 0.26, max: 0.29}
    subscriptions: {min: 2, max: 2}
output:
  dir: fixtures
storage:
  bucket: datagen-fixtures
  prefix: nightly
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if c.Generation.Population != 200 || c.Generation.Seed != 7 {
		t.Errorf("generation = %+v", c.Generation)
	}
	asOf, _ := c.AsOfDate(time.Now())
	if !asOf.Equal(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("AsOfDate() = %v", asOf)
	}

	w, err := c.PersonaWeights()
	if err != nil {
		t.Fatalf("PersonaWeights() error = %v", err)
	}
	if w[persona.HighUtilization] != 0.4 || w[persona.SavingsBuilder] != 0.6 {
		t.Errorf("weights = %v", w)
	}

	tbl, err := c.PolicyTable()
	if err != nil {
		t.Fatalf("PolicyTable() error = %v", err)
	}
	bs := tbl.Get(persona.BalancedStable)
	if bs.Utilization != (persona.Range{Min: 0.26, Max: 0.29}) || bs.Subscriptions != (persona.IntRange{Min: 2, Max: 2}) {
		t.Errorf("balanced_stable override not applied: %+v", bs)
	}
	if c.Storage.Bucket != "datagen-fixtures" || c.Output.Dir != "fixtures" {
		t.Errorf("storage=%+v output=%+v", c.Storage, c.Output)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATAGEN_GENERATION_POPULATION", "75")
	t.Setenv("DATAGEN_LOG_LEVEL", "debug")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Generation.Population != 75 {
		t.Errorf("population = %d, want 75", c.Generation.Population)
	}
	if c.Log.Level != "debug" {
		t.Errorf("log level = %s, want debug", c.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"zero population", func(c *Config) { c.Generation.Population = 0 }, ErrInvalid},
		{"zero workers", func(c *Config) { c.Generation.Workers = 0 }, ErrInvalid},
		{"negative quota", func(c *Config) { c.Generation.LowRiskQuota = -1 }, ErrInvalid},
		{"bad as_of", func(c *Config) { c.Generation.AsOf = "30/06/2025" }, ErrInvalid},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalid},
		{"unknown persona weight", func(c *Config) { c.Generation.Weights = map[string]float64{"big_spender": 3} }, ErrInvalid},
		{"negative weight", func(c *Config) { c.Generation.Weights = map[string]float64{"savings_builder": -1} }, ErrInvalid},
		{"unknown persona override", func(c *Config) { c.Personas = map[string]PolicyOverride{"big_spender": {}} }, ErrInvalid},
		{"overlapping bands", func(c *Config) {
			c.Personas = map[string]PolicyOverride{"savings_builder": {Utilization: &RangeConfig{Min: 0.05, Max: 0.45}}}
		}, persona.ErrOverlappingBands},
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(c)
			err = c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAsOfDateDefaultsToToday(t *testing.T) {
	c := &Config{}
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	got, err := c.AsOfDate(now)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("AsOfDate() = %v", got)
	}
}
