package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	JWTSecret     string `envconfig:"E2E_JWT_SECRET" default:"e2e-secret"`
	FeedBuffer    int    `envconfig:"E2E_FEED_BUFFER" default:"64"`
	SessionBuffer int    `envconfig:"E2E_SESSION_BUFFER" default:"16"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
