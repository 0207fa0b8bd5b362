package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   Server   `yaml:"server" validate:"required"`
	Database Database `yaml:"database" validate:"required"`
	RabbitMQ RabbitMQ `yaml:"rabbitmq" validate:"required"`
	Routing  Routing  `yaml:"routing" validate:"required"`
	Auth     Auth     `yaml:"auth"`
}

type Server struct {
	Port int `yaml:"port" validate:"gt=0"`
}

type Database struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Name     string `yaml:"database" validate:"required"`
}

type RabbitMQ struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
}

type Routing struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	TimeoutMS int    `yaml:"timeout_ms" validate:"gte=0"`
}

type Auth struct {
	Secret string `yaml:"secret"`
}

// Load reads the YAML config file, applies env overrides for secrets, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// secrets come from the environment when set, never only from the file
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("RABBITMQ_PASSWORD"); v != "" {
		cfg.RabbitMQ.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}

	if cfg.Routing.TimeoutMS == 0 {
		cfg.Routing.TimeoutMS = 10000
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
