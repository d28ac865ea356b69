// Package config loads the static configuration the core is started with:
// the source directory to project, the pattern files that drive filtering
// and flattening, the multi-volume traversal mode, the extraction cache
// location, and the ambient logging/mount knobs. Unlike a long-running
// service's configuration, none of this is hot-reloaded: the projection
// engine reads it once at startup and treats it as immutable thereafter.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/javi11/rardirfs/internal/pathutil"
	"github.com/spf13/viper"
)

// OnlyFirstMode controls how far the archive reader walks a multi-volume
// chain while enumerating entries.
type OnlyFirstMode string

const (
	// OnlyFirstYes reads only the first volume of an archive.
	OnlyFirstYes OnlyFirstMode = "yes"
	// OnlyFirstNo walks every volume of an archive.
	OnlyFirstNo OnlyFirstMode = "no"
	// OnlyFirstAuto reads a further volume only when needed to resolve a
	// split entry.
	OnlyFirstAuto OnlyFirstMode = "auto"
)

// FuseConfig holds the knobs handed to the FUSE mount itself.
type FuseConfig struct {
	MountPoint          string  `mapstructure:"mount_point" yaml:"mount_point"`
	AllowOther          bool    `mapstructure:"allow_other" yaml:"allow_other"`
	Debug               bool    `mapstructure:"debug" yaml:"debug"`
	AttrTimeoutSeconds  float64 `mapstructure:"attr_timeout_seconds" yaml:"attr_timeout_seconds"`
	EntryTimeoutSeconds float64 `mapstructure:"entry_timeout_seconds" yaml:"entry_timeout_seconds"`
}

// LogConfig mirrors the shape internal/slogutil expects: a rotated file
// sink plus a level, console output is always on.
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	Level      string `mapstructure:"level" yaml:"level"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Config is the full set of options the core accepts from its invoker, per
// the configuration options table: source directory, filter/flatten
// pattern files, only-first mode, unrar enablement, and cache directory,
// plus the ambient mount/log knobs.
type Config struct {
	SourceDir   string        `mapstructure:"source_dir" yaml:"source_dir"`
	FilterFile  string        `mapstructure:"filter_file" yaml:"filter_file"`
	FlattenFile string        `mapstructure:"flatten_file" yaml:"flatten_file"`
	OnlyFirst     OnlyFirstMode `mapstructure:"only_first" yaml:"only_first"`
	EnableUnrar   bool          `mapstructure:"enable_unrar" yaml:"enable_unrar"`
	CacheDir      string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	ExtractorPath string        `mapstructure:"extractor_path" yaml:"extractor_path"`

	Fuse FuseConfig `mapstructure:"fuse" yaml:"fuse"`
	Log  LogConfig  `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a given field.
func DefaultConfig() *Config {
	return &Config{
		OnlyFirst:     OnlyFirstAuto,
		EnableUnrar:   true,
		CacheDir:      "./cache",
		ExtractorPath: "unrar",
		Fuse: FuseConfig{
			AttrTimeoutSeconds:  1,
			EntryTimeoutSeconds: 1,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    100,
			MaxAge:     28,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// LoadConfig reads configFile (if non-empty) via viper, falling back to
// DefaultConfig for anything left unset, and validates the result.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configFile, err)
		}

		if cfg.Log.File != "" && !filepath.IsAbs(cfg.Log.File) {
			cfg.Log.File = pathutil.JoinAbsPath(filepath.Dir(configFile), cfg.Log.File)
		}
		if cfg.CacheDir != "" && !filepath.IsAbs(cfg.CacheDir) {
			cfg.CacheDir = pathutil.JoinAbsPath(filepath.Dir(configFile), cfg.CacheDir)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the options required to mount are present and
// internally consistent.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("source_dir is required")
	}
	if c.Fuse.MountPoint == "" {
		return fmt.Errorf("fuse.mount_point is required")
	}

	switch c.OnlyFirst {
	case OnlyFirstYes, OnlyFirstNo, OnlyFirstAuto:
	case "":
		c.OnlyFirst = OnlyFirstAuto
	default:
		return fmt.Errorf("only_first must be one of yes, no, auto; got %q", c.OnlyFirst)
	}

	if c.EnableUnrar {
		if c.CacheDir == "" {
			return fmt.Errorf("cache_dir is required when enable_unrar is true")
		}
		if err := pathutil.CheckDirectoryWritable(c.CacheDir); err != nil {
			return fmt.Errorf("cache_dir: %w", err)
		}
	}

	if c.Log.File != "" {
		if err := pathutil.CheckFileDirectoryWritable(c.Log.File, "log"); err != nil {
			return err
		}
	}

	return nil
}
