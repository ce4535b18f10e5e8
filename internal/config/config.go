// Package config loads run configuration from YAML files and OPTIMA_* environment
// variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/optima/internal/opt"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OPTIMA_"

// Config is a complete run description.
type Config struct {
	Engine    string          `yaml:"engine" validate:"oneof=annealing genetic"`
	Seed      uint64          `yaml:"seed"` // 0 picks a random seed
	Problem   ProblemConfig   `yaml:"problem"`
	Criterion CriterionConfig `yaml:"criterion"`
	Annealing AnnealingConfig `yaml:"annealing"`
	Genetic   GeneticConfig   `yaml:"genetic"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// CacheSize bounds the evaluation cache; 0 disables it.
	CacheSize int           `yaml:"cache_size" validate:"gte=0"`
	DataDir   string        `yaml:"data_dir" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	WarmStart string        `yaml:"warm_start" validate:"oneof=none mayfly"`
}

// ProblemConfig describes a knapsack instance.
type ProblemConfig struct {
	ID       uint32    `yaml:"id"`
	Weights  []float64 `yaml:"weights" validate:"required,min=1,dive,gte=0"`
	Values   []float64 `yaml:"values" validate:"required,min=1"`
	Capacity float64   `yaml:"capacity" validate:"gte=0"`
}

type CriterionConfig struct {
	Maximize bool `yaml:"maximize"`
}

// AnnealingConfig configures the annealing engine. At least one of MaxSteps and
// NoImprovementWindow must be set; when both are, the first to fire stops the solve.
type AnnealingConfig struct {
	InitialTemperature  float64 `yaml:"initial_temperature" validate:"gte=0"`
	CoolingAlpha        float64 `yaml:"cooling_alpha" validate:"gt=0,lt=1"`
	MaxSteps            int     `yaml:"max_steps" validate:"gte=0"`
	NoImprovementWindow int     `yaml:"no_improvement_window" validate:"gte=0"`
	MinDelta            float64 `yaml:"min_delta" validate:"gte=0"`
}

// GeneticConfig configures the genetic engine. Generations and NoImprovementWindow
// combine like the annealing stop settings.
type GeneticConfig struct {
	PopulationSize      int     `yaml:"population_size" validate:"gte=2"`
	MutateRate          float64 `yaml:"mutate_rate" validate:"gte=0,lte=1"`
	Selection           string  `yaml:"selection" validate:"oneof=roulette tournament"`
	TournamentSize      int     `yaml:"tournament_size" validate:"gte=1"`
	Elitism             string  `yaml:"elitism" validate:"oneof=none keep_best"`
	Generations         int     `yaml:"generations" validate:"gte=0"`
	NoImprovementWindow int     `yaml:"no_improvement_window" validate:"gte=0"`
	MinDelta            float64 `yaml:"min_delta" validate:"gte=0"`
}

type TelemetryConfig struct {
	// CSVDir receives one <problem id>.csv per solved problem; empty disables it.
	CSVDir      string        `yaml:"csv_dir"`
	Trace       bool          `yaml:"trace"`
	LogInterval time.Duration `yaml:"log_interval" validate:"gte=0"`
}

// Default returns the built-in configuration: annealing on the seven-item instance.
func Default() *Config {
	return &Config{
		Engine: "annealing",
		Problem: ProblemConfig{
			Weights:  []float64{1, 2, 3, 8, 12, 20, 30},
			Values:   []float64{4, 5, 1, 2, 8, 5, 6},
			Capacity: 6,
		},
		Criterion: CriterionConfig{Maximize: true},
		Annealing: AnnealingConfig{
			InitialTemperature: 1000,
			CoolingAlpha:       0.997,
			MaxSteps:           20000,
		},
		Genetic: GeneticConfig{
			PopulationSize: 50,
			MutateRate:     0.05,
			Selection:      "tournament",
			TournamentSize: 3,
			Elitism:        "keep_best",
			Generations:    200,
		},
		Telemetry: TelemetryConfig{
			Trace:       true,
			LogInterval: time.Second,
		},
		DataDir:   "./data",
		WarmStart: "none",
	}
}

// Load reads path over the defaults, applies environment overrides and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode rejects unknown keys so typos do not silently fall back to defaults.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

type envSetter func(cfg *Config, value string) error

var envOverrides = map[string]envSetter{
	"ENGINE": func(c *Config, v string) error { c.Engine = v; return nil },
	"SEED": func(c *Config, v string) (err error) {
		c.Seed, err = strconv.ParseUint(v, 10, 64)
		return err
	},
	"MAXIMIZE": func(c *Config, v string) (err error) {
		c.Criterion.Maximize, err = strconv.ParseBool(v)
		return err
	},
	"DATA_DIR": func(c *Config, v string) error { c.DataDir = v; return nil },
	"CACHE_SIZE": func(c *Config, v string) (err error) {
		c.CacheSize, err = strconv.Atoi(v)
		return err
	},
	"TIMEOUT": func(c *Config, v string) (err error) {
		c.Timeout, err = time.ParseDuration(v)
		return err
	},
	"WARM_START": func(c *Config, v string) error { c.WarmStart = v; return nil },
	"CSV_DIR":    func(c *Config, v string) error { c.Telemetry.CSVDir = v; return nil },
	"LOG_INTERVAL": func(c *Config, v string) (err error) {
		c.Telemetry.LogInterval, err = time.ParseDuration(v)
		return err
	},
	"MAX_STEPS": func(c *Config, v string) (err error) {
		c.Annealing.MaxSteps, err = strconv.Atoi(v)
		return err
	},
	"GENERATIONS": func(c *Config, v string) (err error) {
		c.Genetic.Generations, err = strconv.Atoi(v)
		return err
	},
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for key, set := range envOverrides {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		if err := set(cfg, strings.TrimSpace(v)); err != nil {
			return &opt.ConfigError{Field: EnvPrefix + key, Reason: err.Error()}
		}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field, _ := strings.CutPrefix(fe.Namespace(), "Config.")
			reason := "failed " + fe.Tag()
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return &opt.ConfigError{Field: field, Reason: reason}
		}
		return fmt.Errorf("failed to validate config: %w", err)
	}

	if len(c.Problem.Weights) != len(c.Problem.Values) {
		return &opt.ConfigError{Field: "problem", Reason: "weights and values must have the same length"}
	}
	if c.Engine == "genetic" && len(c.Problem.Weights) < 2 {
		return &opt.ConfigError{Field: "problem.weights", Reason: "genetic search needs at least 2 items"}
	}
	if c.Annealing.MaxSteps == 0 && c.Annealing.NoImprovementWindow == 0 {
		return &opt.ConfigError{Field: "annealing", Reason: "set max_steps or no_improvement_window"}
	}
	if c.Genetic.Generations == 0 && c.Genetic.NoImprovementWindow == 0 {
		return &opt.ConfigError{Field: "genetic", Reason: "set generations or no_improvement_window"}
	}
	return nil
}
