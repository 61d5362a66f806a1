package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN    string `env:"DATABASE_DSN,required=true"`
	RedisURL       string `env:"REDIS_URL,required=true"`
	APIPort        int    `env:"API_PORT,default=8080"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
	ProgressTTLSec int    `env:"PROGRESS_TTL_SEC,default=3600"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
