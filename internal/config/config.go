package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Cart     CartConfig     `mapstructure:"cart" validate:"required"`
	Checkout CheckoutConfig `mapstructure:"checkout" validate:"required"`
	Catalog  CatalogConfig  `mapstructure:"catalog" validate:"required"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required,hostname_port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig selects where the cart is persisted.
type StorageConfig struct {
	Backend      string         `mapstructure:"backend" validate:"required,oneof=memory file redis postgres"`
	Key          string         `mapstructure:"key" validate:"required"`
	WriteTimeout time.Duration  `mapstructure:"write_timeout" validate:"gt=0"`
	File         FileConfig     `mapstructure:"file"`
	Redis        RedisConfig    `mapstructure:"redis"`
	Postgres     PostgresConfig `mapstructure:"postgres"`
	Breaker      BreakerConfig  `mapstructure:"breaker"`
}

type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures" validate:"gt=0"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"gt=0"`
}

type CartConfig struct {
	// Currency is an ISO 4217 code.
	Currency string `mapstructure:"currency" validate:"required,iso4217"`
}

type CheckoutConfig struct {
	EmailPolicy string `mapstructure:"email_policy" validate:"required,oneof=card_only always"`
}

type CatalogConfig struct {
	URL        string        `mapstructure:"url" validate:"required,url"`
	Revalidate time.Duration `mapstructure:"revalidate" validate:"gt=0"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PageSize   int           `mapstructure:"page_size" validate:"gt=0,lte=100"`
}
