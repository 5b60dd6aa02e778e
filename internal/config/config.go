// Package config loads libload settings from the environment and an optional
// .env file.
//
// Every key can be set with a LIBLOAD_ prefixed variable, dots replaced by
// underscores, e.g. LIBLOAD_BUNDLE_PATH or LIBLOAD_EXTRACT_BUFFER_SIZE.
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/bagtoad/libload/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "LIBLOAD"

// Config holds all settings.
type Config struct {
	Bundle    BundleConfig    `mapstructure:"bundle"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Libraries LibrariesConfig `mapstructure:"libraries"`
	Log       logger.Config   `mapstructure:"log"`
}

// BundleConfig selects the bundle and its library namespace.
type BundleConfig struct {
	// Path overrides self-location. Empty means the running executable.
	Path string `mapstructure:"path" default:""`
	// Prefix is the namespace inside the bundle holding native libraries.
	Prefix string `mapstructure:"prefix" default:"jnilibs/"`
}

// ExtractConfig controls where and how libraries are extracted.
type ExtractConfig struct {
	// TempDir is where extracted files go. Empty means the OS temp dir.
	TempDir string `mapstructure:"temp_dir" default:""`
	// BufferSize is the copy buffer in bytes.
	BufferSize int `mapstructure:"buffer_size" default:"2048"`
}

// LibrariesConfig names the list file consulted when no names are given.
type LibrariesConfig struct {
	// List is the library list file. Empty means ~/.libload/libraries.txt.
	List string `mapstructure:"list" default:""`
}

// Load reads dir/.env if present, then the environment.
func Load(dir string) (*Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Extract.BufferSize <= 0 {
		return fmt.Errorf("extract.buffer_size must be positive, got %d", c.Extract.BufferSize)
	}
	if c.Bundle.Prefix != "" && !strings.HasSuffix(c.Bundle.Prefix, "/") {
		return fmt.Errorf("bundle.prefix must end with '/', got %q", c.Bundle.Prefix)
	}
	return nil
}

// bindValues walks the struct and registers every mapstructure key with its
// default tag so AutomaticEnv can see it.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
