package config

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/origolabs/origo/internal/logging"
	"github.com/origolabs/origo/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    - %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    - %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateServerConfigDetails(&config.Server, result)
	validateStorageConfigDetails(&config.Storage, result)
	validateQualityConfigDetails(&config.Quality, result)
	validatePreviewConfigDetails(&config.Preview, result)
	validateLogConfigDetails(&config.Log, result)

	result.Valid = !result.HasErrors()

	return result
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	// 0 lets the system pick a port in tests.
	if config.Port < 0 || config.Port > 65535 {
		result.addError("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access")
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.addError("server.host", config.Host, err.Error(),
				"Use localhost, an IP address or a DNS name")
		}
	}

	for _, origin := range config.AllowedOrigins {
		if origin == "*" {
			result.addWarning("server.allowed_origins", origin, "wildcard origin accepts requests from any site",
				"List the frontend origins explicitly")
			continue
		}
		if strings.TrimSpace(origin) == "" {
			result.addError("server.allowed_origins", origin, "empty origin")
		}
	}
}

func validateStorageConfigDetails(config *StorageConfig, result *ValidationResult) {
	switch config.Backend {
	case BackendFile:
		if err := validatePath(config.Dir); err != nil {
			result.addError("storage.dir", config.Dir, err.Error())
		}
	case BackendS3:
		if _, _, err := validation.ParseEndpoint(config.S3.Endpoint); err != nil {
			result.addError("storage.s3.endpoint", config.S3.Endpoint, err.Error(),
				"Set ORIGO_STORAGE_S3_ENDPOINT, e.g. localhost:9000")
		}
		if strings.TrimSpace(config.S3.Bucket) == "" {
			result.addError("storage.s3.bucket", config.S3.Bucket, "bucket is required")
		}
		if config.S3.AccessKey == "" || config.S3.SecretKey == "" {
			result.addError("storage.s3.access_key", "", "access key and secret key are required",
				"Set ORIGO_STORAGE_S3_ACCESS_KEY and ORIGO_STORAGE_S3_SECRET_KEY")
		}
	default:
		result.addError("storage.backend", config.Backend,
			fmt.Sprintf("unknown storage backend %q", config.Backend),
			"Use \"file\" or \"s3\"")
	}
}

func validateQualityConfigDetails(config *QualityConfig, result *ValidationResult) {
	if config.WarnBytes <= 0 {
		result.addError("quality.warn_bytes", config.WarnBytes, "must be positive")
	}
	if config.FailBytes <= 0 {
		result.addError("quality.fail_bytes", config.FailBytes, "must be positive")
	}
	if config.WarnBytes > 0 && config.FailBytes > 0 && config.WarnBytes >= config.FailBytes {
		result.addError("quality.warn_bytes", config.WarnBytes,
			fmt.Sprintf("warn threshold %d must be below fail threshold %d", config.WarnBytes, config.FailBytes))
	}
	if config.LongLineLimit <= 0 {
		result.addError("quality.long_line_limit", config.LongLineLimit, "must be positive")
	}
}

func validatePreviewConfigDetails(config *PreviewConfig, result *ValidationResult) {
	if err := validateBuildCommand(config.BundlerCommand); err != nil {
		result.addError("preview.bundler_command", config.BundlerCommand, err.Error(),
			"Use npx, bunx or a path to esbuild")
	}
	for _, arg := range config.BundlerArgs {
		if arg == "{entry}" {
			continue
		}
		if err := validation.ValidateArgument(arg); err != nil {
			result.addError("preview.bundler_args", arg, err.Error())
		}
	}
	if config.BundleTimeout <= 0 {
		result.addError("preview.bundle_timeout", config.BundleTimeout, "must be positive")
	}
	if config.MaxArchiveBytes <= 0 {
		result.addError("preview.max_archive_bytes", config.MaxArchiveBytes, "must be positive")
	}
	if config.CacheSize < 0 {
		result.addError("preview.cache_size", config.CacheSize, "must not be negative",
			"Use 0 to disable the preview cache")
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.addError("log.level", config.Level, err.Error(), "Use debug, info, warn or error")
	}
	if config.Format != "text" && config.Format != "json" {
		result.addError("log.format", config.Format, fmt.Sprintf("unknown log format %q", config.Format),
			"Use text or json")
	}
}

// Helper validation functions

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

func validateBuildCommand(command string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">"}
	for _, char := range dangerousChars {
		if strings.Contains(command, char) {
			return fmt.Errorf("contains potentially dangerous character: %s", char)
		}
	}

	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("command cannot be empty")
	}

	return nil
}

func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	for _, seg := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if seg == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
