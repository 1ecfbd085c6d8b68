package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides holds the settings that can be overridden from the
// environment. Unset variables leave their field nil.
type envOverrides struct {
	Days              *int     `env:"VITALDYN_DAYS"`
	Seed              *uint64  `env:"VITALDYN_SEED"`
	InitialPopulation *int     `env:"VITALDYN_INITIAL_POPULATION"`
	BirthMode         *string  `env:"VITALDYN_BIRTH_MODE"`
	BirthRate         *float64 `env:"VITALDYN_BIRTH_RATE"`
	XBirth            *float64 `env:"VITALDYN_X_BIRTH"`
	XOtherMortality   *float64 `env:"VITALDYN_X_OTHER_MORTALITY"`
	LogLevel          *string  `env:"VITALDYN_LOG_LEVEL"`
	LogDir            *string  `env:"VITALDYN_LOG_DIR"`
	StorePath         *string  `env:"VITALDYN_DB"`
	OTelEnabled       *bool    `env:"VITALDYN_OTEL_ENABLED"`
	OTelEndpoint      *string  `env:"VITALDYN_OTEL_ENDPOINT"`
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setIf(&config.Simulation.Days, o.Days)
	setIf(&config.Simulation.Seed, o.Seed)
	setIf(&config.Simulation.InitialPopulation, o.InitialPopulation)
	setIf(&config.Birth.Mode, o.BirthMode)
	setIf(&config.Birth.BirthRate, o.BirthRate)
	setIf(&config.Birth.XBirth, o.XBirth)
	setIf(&config.Mortality.XOtherMortality, o.XOtherMortality)
	setIf(&config.Logging.Level, o.LogLevel)
	setIf(&config.Logging.Dir, o.LogDir)
	setIf(&config.Store.Path, o.StorePath)
	setIf(&config.Telemetry.Enabled, o.OTelEnabled)
	setIf(&config.Telemetry.Endpoint, o.OTelEndpoint)
	if o.OTelEndpoint != nil && *o.OTelEndpoint != "" && o.OTelEnabled == nil {
		config.Telemetry.Enabled = true
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
