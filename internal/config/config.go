// Package config reads autotask settings from AUTOTASK_ environment variables.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config is the full autotask configuration.
type Config struct {
	Logger   Logger   `envPrefix:"LOGGER_"`
	Executor Executor `envPrefix:"EXECUTOR_"`
	Metrics  Metrics  `envPrefix:"METRICS_"`
	Seed     Seed     `envPrefix:"SEED_"`
}

// Logger configures logging.
type Logger struct {
	Level string `env:"LEVEL" envDefault:"warn"`
}

// Executor configures the simulated task executor.
type Executor struct {
	// Parallelism bounds the number of simulated runs in flight.
	Parallelism int `env:"PARALLELISM" envDefault:"4"`
	// Delay is how long a simulated run takes before completing.
	Delay time.Duration `env:"DELAY" envDefault:"5s"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Address enables the Prometheus endpoint when set, e.g. ":9090".
	Address string `env:"ADDRESS"`
}

// Seed selects tasks preloaded by the shell.
type Seed struct {
	File string `env:"FILE"`
	Demo bool   `env:"DEMO" envDefault:"false"`
}

// Parse reads Config from the environment, applying defaults.
func Parse() (*Config, error) {
	conf, err := env.ParseAsWithOptions[Config](env.Options{
		Prefix: "AUTOTASK_",
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &conf, nil
}
