package matcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidConfig = errors.New("invalid matcher config")

// ErrInvalidInput is the configuration error for unusable timestamp
// sequences; it matches ErrInvalidConfig under errors.Is.
var ErrInvalidInput = fmt.Errorf("%w: invalid input", ErrInvalidConfig)

const (
	SelectionRoulette   = "roulette"
	SelectionTournament = "tournament"
)

// Config holds the search parameters. Alpha..Eta weight the cost terms,
// Chi is the share of each generation produced by crossover and Mu the share
// mutated. Kappa is the radius at which the distance kernel reaches half of
// its asymptotic slope.
type Config struct {
	PopulationSize int     `json:"population_size" validate:"gt=0"`
	Alpha          float64 `json:"alpha" validate:"gt=0"`
	Beta           float64 `json:"beta" validate:"gt=0"`
	Gamma          float64 `json:"gamma" validate:"gt=0"`
	Iota           float64 `json:"iota" validate:"gt=0"`
	Eta            float64 `json:"eta" validate:"gt=0"`
	Chi            float64 `json:"chi" validate:"gt=0,lte=1"`
	Mu             float64 `json:"mu" validate:"gt=0,lte=1"`
	Kappa          float64 `json:"kappa" validate:"gt=0"`
	MaxIterations  int     `json:"max_iterations" validate:"gt=0"`

	Seed           int64  `json:"seed"`
	Workers        int    `json:"workers" validate:"gte=0"`
	MaxRestarts    int    `json:"max_restarts" validate:"gte=0"`
	Selection      string `json:"selection" validate:"omitempty,oneof=roulette tournament"`
	TournamentSize int    `json:"tournament_size" validate:"gte=0"`
	StopOnPerfect  bool   `json:"stop_on_perfect"`
}

func DefaultConfig() Config {
	return Config{
		PopulationSize: 1000,
		Alpha:          3,
		Beta:           2,
		Gamma:          1,
		Iota:           5,
		Eta:            5,
		Chi:            0.8,
		Mu:             0.1,
		Kappa:          2,
		MaxIterations:  1000,
		Seed:           1,
		Workers:        1,
		MaxRestarts:    3,
		Selection:      SelectionRoulette,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func (c Config) weights() Weights {
	return Weights{
		Alpha: c.Alpha,
		Beta:  c.Beta,
		Gamma: c.Gamma,
		Iota:  c.Iota,
		Eta:   c.Eta,
		Kappa: c.Kappa,
	}
}
