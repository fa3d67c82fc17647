package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings of the service.
type Config struct {
	AppPort   string
	BodyLimit int

	DBDriver    string
	DatabaseDSN string

	JWTSecret      string
	JWTTTL         time.Duration
	PasswordHasher string

	RabbitMQURL string
	EventsQueue string

	UploadDir  string
	StorageDir string
	StaticDir  string

	LogLevel  string
	LogFormat string
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	HasherMD5    = "md5"
	HasherBcrypt = "bcrypt"
)

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || v.GetString("CONFIG_FILE") != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:        v.GetString("APP_PORT"),
		BodyLimit:      v.GetInt("BODY_LIMIT"),
		DBDriver:       strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTTTL:         v.GetDuration("JWT_TTL"),
		PasswordHasher: strings.ToLower(v.GetString("PASSWORD_HASHER")),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		EventsQueue:    v.GetString("EVENTS_QUEUE"),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		StorageDir:     v.GetString("STORAGE_DIR"),
		StaticDir:      v.GetString("STATIC_DIR"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("BODY_LIMIT", 4*1024*1024)
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "userhub.db")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_TTL", 7*24*time.Hour)
	v.SetDefault("PASSWORD_HASHER", HasherMD5)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("EVENTS_QUEUE", "user_events")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("STORAGE_DIR", "my-uploads")
	v.SetDefault("STATIC_DIR", "public")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Defaults returns a viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("invalid JWT_TTL: %s", c.JWTTTL)
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for driver %s", c.DBDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	switch c.PasswordHasher {
	case HasherMD5, HasherBcrypt:
	default:
		return fmt.Errorf("unsupported PASSWORD_HASHER: %s", c.PasswordHasher)
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("invalid BODY_LIMIT: %d", c.BodyLimit)
	}
	if c.EventsQueue == "" {
		return errors.New("EVENTS_QUEUE must not be empty")
	}
	return nil
}
