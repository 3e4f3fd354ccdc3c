// Package config provides configuration management for Origo using Viper
// for loading from files, environment variables, and command-line flags.
//
// Values come from .origo.yml (or the file named by --config or
// ORIGO_CONFIG_FILE), overridden by ORIGO_ prefixed environment variables
// such as ORIGO_SERVER_PORT or ORIGO_STORAGE_S3_BUCKET.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of configuration environment variables.
const EnvPrefix = "ORIGO"

// Storage backends.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage" json:"storage"`
	Quality QualityConfig `mapstructure:"quality" yaml:"quality" json:"quality"`
	Preview PreviewConfig `mapstructure:"preview" yaml:"preview" json:"preview"`
	Log     LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host" json:"host"`
	Port           int      `mapstructure:"port" yaml:"port" json:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`
}

type StorageConfig struct {
	Backend string   `mapstructure:"backend" yaml:"backend" json:"backend"`
	Dir     string   `mapstructure:"dir" yaml:"dir" json:"dir"`
	S3      S3Config `mapstructure:"s3" yaml:"s3" json:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region" json:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"-" json:"-"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl" json:"use_ssl"`
}

type QualityConfig struct {
	WarnBytes     int      `mapstructure:"warn_bytes" yaml:"warn_bytes" json:"warn_bytes"`
	FailBytes     int      `mapstructure:"fail_bytes" yaml:"fail_bytes" json:"fail_bytes"`
	LongLineLimit int      `mapstructure:"long_line_limit" yaml:"long_line_limit" json:"long_line_limit"`
	DenyList      []string `mapstructure:"deny_list" yaml:"deny_list" json:"deny_list"`
}

type PreviewConfig struct {
	BundlerCommand  string        `mapstructure:"bundler_command" yaml:"bundler_command" json:"bundler_command"`
	BundlerArgs     []string      `mapstructure:"bundler_args" yaml:"bundler_args" json:"bundler_args"`
	BundleTimeout   time.Duration `mapstructure:"bundle_timeout" yaml:"bundle_timeout" json:"bundle_timeout"`
	MaxArchiveBytes int64         `mapstructure:"max_archive_bytes" yaml:"max_archive_bytes" json:"max_archive_bytes"`
	CacheSize       int           `mapstructure:"cache_size" yaml:"cache_size" json:"cache_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// ExtractionFactor bounds the uncompressed size of an accepted archive
// relative to the upload limit.
const ExtractionFactor = 8

// MaxUncompressedBytes is the extraction cap derived from the upload limit.
func (p PreviewConfig) MaxUncompressedBytes() int64 {
	return p.MaxArchiveBytes * ExtractionFactor
}

// Addr is the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SetDefaults registers every key with its default so that Unmarshal and
// environment overrides see the full key set.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.dir", "storage")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.bucket", "origo-previews")
	v.SetDefault("storage.s3.use_ssl", false)

	v.SetDefault("quality.warn_bytes", 100_000)
	v.SetDefault("quality.fail_bytes", 200_000)
	v.SetDefault("quality.long_line_limit", 120)
	v.SetDefault("quality.deny_list", []string{"insecurepkg", "vulnpkg"})

	v.SetDefault("preview.bundler_command", "npx")
	v.SetDefault("preview.bundler_args", []string{"esbuild", "{entry}", "--bundle", "--minify", "--format=esm"})
	v.SetDefault("preview.bundle_timeout", "60s")
	v.SetDefault("preview.max_archive_bytes", 25<<20)
	v.SetDefault("preview.cache_size", 128)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindEnv enables ORIGO_ environment overrides on v, mapping nested keys
// with underscores: storage.s3.bucket becomes ORIGO_STORAGE_S3_BUCKET.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	// Slices given as strings (environment variables) are split on commas by
	// viper's default decode hooks.
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	cfg, err := LoadFrom(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}

	return cfg
}

// Validate returns the first validation error, if any.
func (c *Config) Validate() error {
	result := ValidateConfigWithDetails(c)
	if result.HasErrors() {
		return &result.Errors[0]
	}

	return nil
}
