// Package validation provides the path-safety rules applied to generated and
// uploaded file paths, the structural validator for generated-project payloads,
// and argument checks for external tool invocations.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// IsValidRelativeFile reports whether name is an acceptable relative file path
// inside a generated project: non-empty, not absolute, no ".." segment, not a
// directory-like entry, and with an extension on the final segment.
func IsValidRelativeFile(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "/") {
		return false
	}

	segments := strings.Split(name, "/")
	for _, seg := range segments {
		if seg == ".." {
			return false
		}
	}
	if strings.HasSuffix(name, "/") {
		return false
	}

	return strings.Contains(segments[len(segments)-1], ".")
}

// ResolveWithin joins ref onto dir and returns the cleaned absolute path,
// failing when the result escapes root. Absolute references are rejected.
func ResolveWithin(root, dir, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}
	if strings.ContainsRune(ref, 0) {
		return "", fmt.Errorf("reference contains null byte")
	}
	if strings.HasPrefix(ref, "/") || filepath.IsAbs(ref) {
		return "", fmt.Errorf("path traversal detected: absolute reference %s", ref)
	}

	cleanRoot := filepath.Clean(root)
	joined := filepath.Join(dir, filepath.FromSlash(ref))
	if !IsWithin(cleanRoot, joined) {
		return "", fmt.Errorf("path traversal detected: %s", ref)
	}

	return joined, nil
}

// IsWithin reports whether target is root or lies below it.
func IsWithin(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var storageKeyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateStorageKey checks an identifier that becomes part of a storage path,
// such as a project id.
func ValidateStorageKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if !storageKeyPattern.MatchString(key) || strings.Contains(key, "..") {
		return fmt.Errorf("key %q is not a safe storage key", key)
	}

	return nil
}

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\x00"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %q", char)
		}
	}

	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	if filepath.IsAbs(arg) && !strings.HasPrefix(arg, "/usr/bin/") && !strings.HasPrefix(arg, "/bin/") &&
		!strings.HasPrefix(arg, "/usr/local/bin/") {
		return fmt.Errorf("absolute path not allowed: %s", arg)
	}

	return nil
}

// ValidateCommand validates a command name against an allowlist
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if !allowedCommands[filepath.Base(command)] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// ValidateOrigin validates a browser origin against an allowlist. Entries may be
// full origins or bare host[:port] values.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
