package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/seb-verificator/sebv"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/options"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/hashing"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SEBV_LOGGING_LEVEL.
const EnvPrefix = "SEBV"

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Installation InstallationConfig `mapstructure:"installation"`
	References   ReferencesConfig   `mapstructure:"references"`
	Builder      BuilderConfig      `mapstructure:"builder"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Watch        WatchConfig        `mapstructure:"watch"`
}

// InstallationConfig locates the installation to verify. Empty program
// directories fall back to the host environment.
type InstallationConfig struct {
	Path            string `mapstructure:"path"`
	ProgramFiles    string `mapstructure:"programFiles"`
	ProgramFilesX86 string `mapstructure:"programFilesX86"`
}

// ReferencesConfig lists where reference snapshots are loaded from.
type ReferencesConfig struct {
	Directories []string      `mapstructure:"directories"`
	Bundled     bool          `mapstructure:"bundled"`
	Catalog     CatalogConfig `mapstructure:"catalog"`
}

// CatalogConfig stores database connection details.
type CatalogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// BuilderConfig tunes snapshot building.
type BuilderConfig struct {
	Workers             int      `mapstructure:"workers"`
	Exclude             []string `mapstructure:"exclude"`
	SignatureExtensions []string `mapstructure:"signatureExtensions"`
	FollowSymlinks      bool     `mapstructure:"followSymlinks"`
}

// LoggingConfig stores logging sinks.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// WatchConfig stores watch mode settings.
type WatchConfig struct {
	DebounceMillis int `mapstructure:"debounceMillis"`
}

var AppConfig Config

// SetDefaults registers every known key, which also makes each key
// overridable from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("installation.path", "")
	v.SetDefault("installation.programFiles", "")
	v.SetDefault("installation.programFilesX86", "")

	v.SetDefault("references.directories", []string{internal.DefaultReferencesDir})
	v.SetDefault("references.bundled", true)
	v.SetDefault("references.catalog.enabled", false)
	v.SetDefault("references.catalog.dsn", internal.DefaultCatalogPath)

	v.SetDefault("builder.workers", 0)
	v.SetDefault("builder.exclude", []string{})
	v.SetDefault("builder.signatureExtensions", internal.DefaultSignatureExtensions)
	v.SetDefault("builder.followSymlinks", true)

	v.SetDefault("logging.level", internal.DefaultLogLevel)
	v.SetDefault("logging.file", internal.DefaultLogFile)
	v.SetDefault("logging.console", true)

	v.SetDefault("watch.debounceMillis", internal.DefaultDebounceMillis)
}

// LoadConfig reads configuration into the global viper instance, so that
// flags bound with viper.BindPFlag take precedence.
func LoadConfig(configPath string) (*Config, error) {
	cfg, err := Load(viper.GetViper(), configPath)
	if err != nil {
		return nil, err
	}
	AppConfig = *cfg
	return &AppConfig, nil
}

// Load reads configuration from file or environment variables into v. An
// explicit configPath must exist; otherwise config.yaml is searched for and
// may be absent.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &cfg, nil
}

// BuildOptions derives tree builder options.
func (c *Config) BuildOptions() options.BuildOptions {
	return options.BuildOptions{
		Workers:        c.Builder.Workers,
		IgnorePatterns: c.Builder.Exclude,
		FollowSymlinks: c.Builder.FollowSymlinks,
	}.Normalized()
}

// HasherOptions derives fingerprinting options.
func (c *Config) HasherOptions() []hashing.Option {
	if len(c.Builder.SignatureExtensions) == 0 {
		return nil
	}
	return []hashing.Option{hashing.WithSignatureExtensions(c.Builder.SignatureExtensions...)}
}

// DebounceInterval returns the watch debounce as a duration.
func (c *Config) DebounceInterval() time.Duration {
	if c.Watch.DebounceMillis <= 0 {
		return time.Duration(internal.DefaultDebounceMillis) * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}
