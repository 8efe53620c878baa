// Package config holds the environment-driven service configuration.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	GatewayURL string `envconfig:"GATEWAY_URL" required:"true"`
	FileAPIURL string `envconfig:"FILE_API_URL" required:"true"`

	DataDir string `envconfig:"DATA_DIR" default:"tmp/js"`

	// PersistPrivateKey keeps the signing key in the durable session
	// snapshot. Off by default; a restored session without it comes back
	// in read-only mode.
	PersistPrivateKey bool `envconfig:"PERSIST_PRIVATE_KEY" default:"false"`

	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
