package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/dvloznov/finance-datagen/internal/persona"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

const asOfLayout = "2006-01-02"

type GenerationConfig struct {
	Population   int                `mapstructure:"population"`
	Seed         uint64             `mapstructure:"seed"`
	WindowDays   int                `mapstructure:"window_days"`
	AsOf         string             `mapstructure:"as_of"`
	Workers      int                `mapstructure:"workers"`
	LowRiskQuota int                `mapstructure:"low_risk_quota"`
	Weights      map[string]float64 `mapstructure:"weights"`
}

type RangeConfig struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

type IntRangeConfig struct {
	Min int `mapstructure:"min"`
	Max int `mapstructure:"max"`
}

// PolicyOverride replaces selected fields of a persona's built-in policy.
// Nil fields keep the built-in value.
type PolicyOverride struct {
	Utilization        *RangeConfig    `mapstructure:"utilization"`
	CheckingBalance    *RangeConfig    `mapstructure:"checking_balance"`
	Subscriptions      *IntRangeConfig `mapstructure:"subscriptions"`
	SavingsCadenceDays *IntRangeConfig `mapstructure:"savings_cadence_days"`
}

type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	MetricsFile string `mapstructure:"metrics_file"`
}

type SourceConfig struct {
	Path       string `mapstructure:"path"`
	SampleSize int    `mapstructure:"sample_size"`
}

type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Endpoint        string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Generation GenerationConfig          `mapstructure:"generation"`
	Personas   map[string]PolicyOverride `mapstructure:"personas"`
	Output     OutputConfig              `mapstructure:"output"`
	Source     SourceConfig              `mapstructure:"source"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Log        LogConfig                 `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("generation.population", 50)
	v.SetDefault("generation.seed", 42)
	v.SetDefault("generation.window_days", 180)
	v.SetDefault("generation.as_of", "")
	v.SetDefault("generation.workers", 4)
	v.SetDefault("generation.low_risk_quota", 2)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.metrics_file", "")
	v.SetDefault("source.path", "")
	v.SetDefault("source.sample_size", 0)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from the YAML file at path. An empty path uses
// defaults only. Environment variables override both, e.g.
// DATAGEN_GENERATION_POPULATION=500.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DATAGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate checks every field that generation depends on.
func (c *Config) Validate() error {
	g := c.Generation
	switch {
	case g.Population <= 0:
		return fmt.Errorf("%w: generation.population must be positive, got %d", ErrInvalid, g.Population)
	case g.WindowDays <= 0:
		return fmt.Errorf("%w: generation.window_days must be positive, got %d", ErrInvalid, g.WindowDays)
	case g.Workers <= 0:
		return fmt.Errorf("%w: generation.workers must be positive, got %d", ErrInvalid, g.Workers)
	case g.LowRiskQuota < 0:
		return fmt.Errorf("%w: generation.low_risk_quota must not be negative", ErrInvalid)
	case c.Source.SampleSize < 0:
		return fmt.Errorf("%w: source.sample_size must not be negative", ErrInvalid)
	case c.Output.Dir == "":
		return fmt.Errorf("%w: output.dir is required", ErrInvalid)
	}

	if _, err := c.AsOfDate(time.Now()); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if _, err := c.PersonaWeights(); err != nil {
		return err
	}
	if _, err := c.PolicyTable(); err != nil {
		return err
	}
	return nil
}

// AsOfDate returns the end of the generation window at UTC midnight. An empty
// as_of means the day of now.
func (c *Config) AsOfDate(now time.Time) (time.Time, error) {
	if c.Generation.AsOf == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(asOfLayout, c.Generation.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: generation.as_of %q is not YYYY-MM-DD", ErrInvalid, c.Generation.AsOf)
	}
	return t, nil
}

// PersonaWeights parses the configured weight table. An empty table splits
// the population evenly.
func (c *Config) PersonaWeights() (persona.Weights, error) {
	if len(c.Generation.Weights) == 0 {
		return persona.EvenWeights(c.Generation.Population), nil
	}
	w := make(persona.Weights, len(c.Generation.Weights))
	for name, v := range c.Generation.Weights {
		p, err := persona.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: generation.weights: %v", ErrInvalid, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: generation.weights.%s must not be negative", ErrInvalid, name)
		}
		w[p] = v
	}
	return w, nil
}

// PolicyTable applies the persona overrides to the built-in table and
// validates the result, so overlapping utilization bands are rejected here.
func (c *Config) PolicyTable() (persona.Table, error) {
	tbl := persona.DefaultTable()
	for name, o := range c.Personas {
		p, err := persona.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: personas: %v", ErrInvalid, err)
		}
		pol := tbl[p]
		if o.Utilization != nil {
			pol.Utilization = persona.Range{Min: o.Utilization.Min, Max: o.Utilization.Max}
		}
		if o.CheckingBalance != nil {
			pol.CheckingBalance = persona.Range{Min: o.CheckingBalance.Min, Max: o.CheckingBalance.Max}
		}
		if o.Subscriptions != nil {
			pol.Subscriptions = persona.IntRange{Min: o.Subscriptions.Min, Max: o.Subscriptions.Max}
		}
		if o.SavingsCadenceDays != nil {
			pol.SavingsCadenceDays = persona.IntRange{Min: o.SavingsCadenceDays.Min, Max: o.SavingsCadenceDays.Max}
		}
		tbl[p] = pol
	}
	if err := tbl.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return tbl, nil
}
