package chatws

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds client configuration. Fields are read from CHATWS_* environment variables.
type Config struct {
	Host             string        `env:"CHATWS_HOST"              envDefault:"http://localhost:8080"`
	Room             string        `env:"CHATWS_ROOM"              envDefault:"general"`
	Origin           string        `env:"CHATWS_ORIGIN"`
	PingInterval     time.Duration `env:"CHATWS_PING_INTERVAL"     envDefault:"0s"`
	WriteTimeout     time.Duration `env:"CHATWS_WRITE_TIMEOUT"     envDefault:"1s"`
	HandshakeTimeout time.Duration `env:"CHATWS_HANDSHAKE_TIMEOUT" envDefault:"45s"`
}

// ParseConfigEnv loads a Config from the environment.
func ParseConfigEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}
	return cfg, nil
}
