// Package config loads command configuration from flags, environment and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TRADER_EXPLORER_DB_URL.
const EnvPrefix = "TRADER_EXPLORER"

// Keys shared by flags and environment variables.
const (
	KeyDBURL           = "db-url"
	KeyCSVDir          = "csv-dir"
	KeyAddr            = "addr"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
	KeyInitSchema      = "init-schema"
	KeyShutdownTimeout = "shutdown-timeout"
	KeyFormat          = "format"
	KeyOutput          = "output"
)

// Defaults.
const (
	DefaultAddr            = ":8000"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "prefixed"
	DefaultShutdownTimeout = 10 * time.Second
)

var (
	ErrMissingDBURL  = errors.New("database url is required")
	ErrMissingCSVDir = errors.New("csv directory is required")
)

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped and existing variables are not overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// NewViper returns a viper instance bound to flags and TRADER_EXPLORER_* variables.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}
	return v, nil
}

// Logging holds logger settings.
type Logging struct {
	Level  string
	Format string
}

func loggingFrom(v *viper.Viper) Logging {
	l := Logging{Level: v.GetString(KeyLogLevel), Format: v.GetString(KeyLogFormat)}
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
	return l
}

// ETL is the configuration of the etl command.
type ETL struct {
	DatabaseURL string
	CSVDir      string
	Logging     Logging
}

// ETLFrom reads the etl configuration from v.
func ETLFrom(v *viper.Viper) ETL {
	return ETL{
		DatabaseURL: v.GetString(KeyDBURL),
		CSVDir:      v.GetString(KeyCSVDir),
		Logging:     loggingFrom(v),
	}
}

// Validate checks required fields.
func (c ETL) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDBURL
	}
	if c.CSVDir == "" {
		return ErrMissingCSVDir
	}
	return nil
}

// Server is the configuration of the API server.
type Server struct {
	DatabaseURL     string
	Addr            string
	InitSchema      bool
	ShutdownTimeout time.Duration
	Logging         Logging
}

// ServerFrom reads the server configuration from v.
func ServerFrom(v *viper.Viper) Server {
	c := Server{
		DatabaseURL:     v.GetString(KeyDBURL),
		Addr:            v.GetString(KeyAddr),
		InitSchema:      v.GetBool(KeyInitSchema),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		Logging:         loggingFrom(v),
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

// Validate checks required fields.
func (c Server) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDBURL
	}
	return nil
}
