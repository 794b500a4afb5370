// Package config loads madoctl settings from an optional file, MADO_ environment
// variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/mado.go/pkg/logging"
	"github.com/jpfielding/mado.go/pkg/mado"
	"github.com/jpfielding/mado.go/pkg/validate"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys
const (
	KeyDeterministic          = "deterministic"
	KeyAllowDuplicates        = "allow-duplicates"
	KeyDefaultManufacturer    = "default-manufacturer"
	KeyDefaultInstitution     = "default-institution"
	KeyDefaultSoftwareVersion = "default-software-version"
	KeyLogLevel               = "log-level"
	KeyLogFormat              = "log-format"
	KeyLogFile                = "log-file"
)

const envPrefix = "MADO"

type Config struct {
	Deterministic          bool   `mapstructure:"deterministic"`
	AllowDuplicates        bool   `mapstructure:"allow-duplicates"`
	DefaultManufacturer    string `mapstructure:"default-manufacturer"`
	DefaultInstitution     string `mapstructure:"default-institution"`
	DefaultSoftwareVersion string `mapstructure:"default-software-version"`
	LogLevel               string `mapstructure:"log-level"`
	LogFormat              string `mapstructure:"log-format"`
	LogFile                string `mapstructure:"log-file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDeterministic, true)
	v.SetDefault(KeyAllowDuplicates, false)
	v.SetDefault(KeyDefaultManufacturer, mado.DefaultManufacturer)
	v.SetDefault(KeyDefaultInstitution, mado.DefaultInstitution)
	v.SetDefault(KeyDefaultSoftwareVersion, mado.DefaultSoftwareVersion)
	v.SetDefault(KeyLogLevel, "INFO")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFile, "")
}

// Load reads the file at path, when given, then the environment, then any flags
// in fs that were set on the command line
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if fs != nil {
		for _, key := range []string{
			KeyDeterministic, KeyAllowDuplicates, KeyDefaultManufacturer, KeyDefaultInstitution,
			KeyDefaultSoftwareVersion, KeyLogLevel, KeyLogFormat, KeyLogFile,
		} {
			if f := fs.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown log settings
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Logger builds the logger the settings describe. The closer releases a log file.
func (c *Config) Logger(stdout io.Writer) (*slog.Logger, io.Closer) {
	level, _ := logging.ParseLevel(c.LogLevel)
	var w io.Writer = stdout
	var closer io.Closer = nopCloser{}
	if c.LogFile != "" {
		fw := logging.FileWriter(c.LogFile)
		w, closer = fw, fw
	}
	if w == nil {
		w = os.Stderr
	}
	return logging.Logger(w, strings.EqualFold(c.LogFormat, "json"), level), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// MapperOptions translates the settings for mado.New
func (c *Config) MapperOptions(log *slog.Logger) []mado.Option {
	opts := []mado.Option{
		mado.WithDeterministic(c.Deterministic),
		mado.WithDefaultManufacturer(c.DefaultManufacturer),
		mado.WithDefaultInstitution(c.DefaultInstitution),
		mado.WithDefaultSoftwareVersion(c.DefaultSoftwareVersion),
	}
	if log != nil {
		opts = append(opts, mado.WithLogger(log))
	}
	return opts
}

// ValidatorOptions translates the settings for validate.New
func (c *Config) ValidatorOptions() []validate.Option {
	return []validate.Option{validate.WithAllowDuplicates(c.AllowDuplicates)}
}
