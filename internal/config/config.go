package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "SCHEMA_INSPECT"
	defaultTagName = "yaml"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
)

type Config struct {
	LogLevel string       `yaml:"log_level"`
	Source   SourceConfig `yaml:"source"`
	Output   OutputConfig `yaml:"output"`
}

type SourceConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Schema defaults to the connection's current schema when empty.
	Schema             string        `yaml:"schema"`
	QueryTimeout       time.Duration `yaml:"query_timeout"`
	MaxOpenConnections int           `yaml:"max_open_connections"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
}

var defaults = map[string]any{
	"log_level":                   "info",
	"source.driver":               DriverPostgres,
	"source.dsn":                  "",
	"source.schema":               "",
	"source.query_timeout":        "0s",
	"source.max_open_connections": 4,
	"output.format":               "text",
}

// Binder attaches extra value sources (flags, explicit env names) to the loader.
type Binder interface {
	Bind(v *viper.Viper) error
}

// LoadConfig reads the YAML file at path, overlays SCHEMA_INSPECT_* environment
// variables and whatever the binders attach, and validates the result. An
// empty path skips the file: the connection string alone is enough to run.
func LoadConfig(path string, binders ...Binder) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, b := range binders {
		if err := b.Bind(v); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = defaultTagName
	})
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogLevel, validation.Required, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.Source),
		validation.Field(&c.Output),
	)
}

func (s SourceConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(DriverPostgres, DriverPgx, DriverMySQL, DriverSQLite)),
		validation.Field(&s.DSN, validation.Required.Error("a connection string is required (source.dsn or --dsn)")),
		validation.Field(&s.QueryTimeout, validation.Min(time.Duration(0))),
		validation.Field(&s.MaxOpenConnections, validation.Min(0)),
	)
}

func (o OutputConfig) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Format, validation.Required, validation.In("text", "table", "json", "yaml")),
	)
}

// FlagBinder binds command-line flags to config keys. Flags win over the
// environment and the file, but only when they were set explicitly.
type FlagBinder struct {
	flags    *pflag.FlagSet
	bindings map[string]string
}

func NewFlagBinder(flags *pflag.FlagSet, bindings map[string]string) *FlagBinder {
	return &FlagBinder{flags: flags, bindings: bindings}
}

func (f *FlagBinder) Bind(v *viper.Viper) error {
	for flagName, key := range f.bindings {
		flag := f.flags.Lookup(flagName)
		if flag == nil {
			return fmt.Errorf("bind flag %s to key %s: %w", flagName, key, errUnknownFlag)
		}
		if !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s to key %s: %w", flagName, key, err)
		}
	}
	return nil
}

var errUnknownFlag = errors.New("no such flag")

// EnvBinder binds well-known environment variables that do not follow the
// SCHEMA_INSPECT_ prefix, such as DATABASE_URL.
type EnvBinder struct {
	binders map[string]string
}

func NewEnvBinder(binders map[string]string) *EnvBinder {
	return &EnvBinder{binders: binders}
}

func NewDefaultEnvBinder() *EnvBinder {
	return NewEnvBinder(map[string]string{
		"DATABASE_URL": "source.dsn",
	})
}

func (e *EnvBinder) Bind(v *viper.Viper) error {
	for envVar, key := range e.binders {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), envVar); err != nil {
			return fmt.Errorf("bind env var %s to key %s: %w", envVar, key, err)
		}
	}
	return nil
}
