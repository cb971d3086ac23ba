package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env    string `yaml:"env" env:"APP_ENV" env-default:"local"`
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl" env:"QUIZ_CACHE_TTL"`
	} `yaml:"quiz"`
	Auth struct {
		Secret string `yaml:"secret" env:"AUTH_SECRET"`
	} `yaml:"auth"`
	Session struct {
		DefaultTimeLimit string `yaml:"default_time_limit" env:"SESSION_DEFAULT_TIME_LIMIT"`
		Grace            string `yaml:"grace" env:"SESSION_GRACE"`
		DefaultPoints    int    `yaml:"default_points" env:"SESSION_DEFAULT_POINTS"`
		SweepSchedule    string `yaml:"sweep_schedule" env:"SESSION_SWEEP_SCHEDULE" env-default:"@every 1s"`
		Retain           string `yaml:"retain" env:"SESSION_RETAIN"`
	} `yaml:"session"`
}

// Load reads YAML config from path, then applies environment overrides.
// A missing file is not an error so the service can run from env alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
