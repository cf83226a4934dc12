package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

const envPrefix = "COURSECART"

var defaults = map[string]any{
	"server.addr":             ":8080",
	"server.request_timeout":  "10s",
	"server.shutdown_timeout": "10s",

	"log.level": "info",

	"storage.backend":              "file",
	"storage.key":                  "cart",
	"storage.write_timeout":        "5s",
	"storage.file.dir":             "./data",
	"storage.redis.addr":           "",
	"storage.redis.password":       "",
	"storage.redis.db":             0,
	"storage.postgres.url":         "",
	"storage.breaker.max_failures": 5,
	"storage.breaker.open_timeout": "30s",

	"cart.currency": "NGN",

	"checkout.email_policy": "card_only",

	"catalog.url":        "https://lumilearn.s3.us-east-1.amazonaws.com/dump/courses.json",
	"catalog.revalidate": "1h",
	"catalog.timeout":    "10s",
	"catalog.page_size":  12,
}

// Load reads configuration from defaults, the optional YAML file at path and
// COURSECART_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("v.ReadInConfig: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	var errs []error

	switch c.Storage.Backend {
	case "file":
		if c.Storage.File.Dir == "" {
			errs = append(errs, fmt.Errorf("storage.file.dir is required for the file backend"))
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("storage.redis.addr is required for the redis backend"))
		}
	case "postgres":
		if c.Storage.Postgres.URL == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.url is required for the postgres backend"))
		}
	}

	if _, err := currency.ParseISO(c.Cart.Currency); err != nil {
		errs = append(errs, fmt.Errorf("cart.currency[%s] is not valid: %w", c.Cart.Currency, err))
	}

	return errors.Join(errs...)
}

func (c CartConfig) Unit() currency.Unit {
	return currency.MustParseISO(c.Currency)
}
