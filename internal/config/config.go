package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"schedulematch/internal/matcher"
	"schedulematch/internal/storage"
)

const EnvPrefix = "SCHEDULEMATCH_"

// Settings is everything a run can be configured with outside of its input
// timestamps. Values are layered: defaults, then SCHEDULEMATCH_* environment
// variables, then an optional YAML or JSON file.
type Settings struct {
	PopulationSize int     `env:"POPULATION_SIZE" yaml:"population_size"`
	Alpha          float64 `env:"ALPHA" yaml:"alpha"`
	Beta           float64 `env:"BETA" yaml:"beta"`
	Gamma          float64 `env:"GAMMA" yaml:"gamma"`
	Iota           float64 `env:"IOTA" yaml:"iota"`
	Eta            float64 `env:"ETA" yaml:"eta"`
	Chi            float64 `env:"CHI" yaml:"chi"`
	Mu             float64 `env:"MU" yaml:"mu"`
	Kappa          float64 `env:"KAPPA" yaml:"kappa"`
	MaxIterations  int     `env:"MAX_ITERATIONS" yaml:"max_iterations"`
	Seed           int64   `env:"SEED" yaml:"seed"`
	Workers        int     `env:"WORKERS" yaml:"workers"`
	MaxRestarts    int     `env:"MAX_RESTARTS" yaml:"max_restarts"`
	Selection      string  `env:"SELECTION" yaml:"selection"`
	TournamentSize int     `env:"TOURNAMENT_SIZE" yaml:"tournament_size"`
	StopOnPerfect  bool    `env:"STOP_ON_PERFECT" yaml:"stop_on_perfect"`

	Store      string `env:"STORE" yaml:"store" validate:"oneof=memory sqlite"`
	DBPath     string `env:"DB_PATH" yaml:"db_path" validate:"required_if=Store sqlite"`
	ExportsDir string `env:"EXPORTS_DIR" yaml:"exports_dir" validate:"required"`
	LogLevel   string `env:"LOG_LEVEL" yaml:"log_level" validate:"oneof=debug info warn error"`
}

func Default() Settings {
	m := matcher.DefaultConfig()
	return Settings{
		PopulationSize: m.PopulationSize,
		Alpha:          m.Alpha,
		Beta:           m.Beta,
		Gamma:          m.Gamma,
		Iota:           m.Iota,
		Eta:            m.Eta,
		Chi:            m.Chi,
		Mu:             m.Mu,
		Kappa:          m.Kappa,
		MaxIterations:  m.MaxIterations,
		Seed:           m.Seed,
		Workers:        m.Workers,
		MaxRestarts:    m.MaxRestarts,
		Selection:      m.Selection,
		TournamentSize: m.TournamentSize,
		StopOnPerfect:  m.StopOnPerfect,

		Store:      storage.DefaultStoreKind(),
		DBPath:     "schedulematch.db",
		ExportsDir: "exports",
		LogLevel:   "info",
	}
}

// Load builds settings from defaults, the environment and, when path is not
// empty, the given file. The result is validated.
func Load(path string) (Settings, error) {
	s := Default()
	if err := s.applyEnv(); err != nil {
		return s, err
	}
	if path != "" {
		if err := s.applyFile(path); err != nil {
			return s, err
		}
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) applyEnv() error {
	if err := env.ParseWithOptions(s, env.Options{Prefix: EnvPrefix}); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return fmt.Errorf("environment: %w", aggErr.Errors[0])
		}
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

func (s *Settings) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", matcher.ErrInvalidConfig, err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s (got %q)", fe.Field(), fe.Tag(), fmt.Sprint(fe.Value())))
		}
		return fmt.Errorf("%w: %s", matcher.ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return s.MatcherConfig().Validate()
}

func (s Settings) MatcherConfig() matcher.Config {
	return matcher.Config{
		PopulationSize: s.PopulationSize,
		Alpha:          s.Alpha,
		Beta:           s.Beta,
		Gamma:          s.Gamma,
		Iota:           s.Iota,
		Eta:            s.Eta,
		Chi:            s.Chi,
		Mu:             s.Mu,
		Kappa:          s.Kappa,
		MaxIterations:  s.MaxIterations,
		Seed:           s.Seed,
		Workers:        s.Workers,
		MaxRestarts:    s.MaxRestarts,
		Selection:      s.Selection,
		TournamentSize: s.TournamentSize,
		StopOnPerfect:  s.StopOnPerfect,
	}
}

// SlogLevel maps LogLevel onto slog. Unknown values fall back to info.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
