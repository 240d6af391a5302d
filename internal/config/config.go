package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// LockTimeoutMS bounds the wait for a contended account row before the
	// engine gives up with a retryable error.
	LockTimeoutMS int `env:"LOCK_TIMEOUT_MS" envDefault:"3000"`

	// FXFailClosed rejects transactions whose currency pair has no
	// configured rate instead of defaulting the rate to 1.
	FXFailClosed bool `env:"FX_FAIL_CLOSED" envDefault:"false"`

	AccountNumberPrefix string `env:"ACCOUNT_NUMBER_PREFIX" envDefault:"BA"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
