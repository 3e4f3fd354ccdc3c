package preview

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/origolabs/origo/internal/errors"
	"github.com/origolabs/origo/internal/validation"
)

// Bundler turns a script entry point into a single self-contained module.
type Bundler interface {
	Bundle(ctx context.Context, entry string) (string, error)
}

// BundlerFunc adapts a function to the Bundler interface.
type BundlerFunc func(ctx context.Context, entry string) (string, error)

// Bundle calls f.
func (f BundlerFunc) Bundle(ctx context.Context, entry string) (string, error) {
	return f(ctx, entry)
}

// DefaultBundlerArgs bundle, minify and emit an ES module on stdout.
var DefaultBundlerArgs = []string{"esbuild", "{entry}", "--bundle", "--minify", "--format=esm"}

const entryPlaceholder = "{entry}"

// allowedBundlers lists the executables the pipeline may start.
var allowedBundlers = map[string]bool{
	"npx":     true,
	"esbuild": true,
	"bunx":    true,
}

// ESBuild runs esbuild as a subprocess.
type ESBuild struct {
	command string
	args    []string
}

// NewESBuild creates a bundler. An empty command defaults to npx; nil args
// default to DefaultBundlerArgs. The "{entry}" argument is replaced by the
// script path, and the path is appended when no placeholder is present.
func NewESBuild(command string, args []string) *ESBuild {
	if command == "" {
		command = "npx"
	}
	if args == nil {
		args = DefaultBundlerArgs
	}

	return &ESBuild{command: command, args: append([]string(nil), args...)}
}

// Validate checks the configured command and static arguments.
func (b *ESBuild) Validate() error {
	if err := validation.ValidateCommand(b.command, allowedBundlers); err != nil {
		return err
	}
	for _, arg := range b.args {
		if arg == entryPlaceholder {
			continue
		}
		if err := validation.ValidateArgument(arg); err != nil {
			return fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}

	return nil
}

func (b *ESBuild) argv(entry string) []string {
	argv := make([]string, 0, len(b.args)+1)
	replaced := false
	for _, arg := range b.args {
		if arg == entryPlaceholder {
			argv = append(argv, entry)
			replaced = true
			continue
		}
		argv = append(argv, arg)
	}
	if !replaced {
		argv = append(argv, entry)
	}

	return argv
}

// Bundle runs the bundler on entry and returns its stdout. Failures are
// reported as transform errors carrying the tool's output under "log".
func (b *ESBuild) Bundle(ctx context.Context, entry string) (string, error) {
	if err := b.Validate(); err != nil {
		return "", errors.NewPreviewTransformFailed("transform-failed").
			WithDetail("log", err.Error()).WithCause(err)
	}

	cmd := exec.CommandContext(ctx, b.command, b.argv(entry)...)
	cmd.Dir = filepath.Dir(entry)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderrors.Is(err, exec.ErrNotFound) {
			return "", errors.NewPreviewTransformFailed("transform-failed").
				WithDetail("log", "esbuild-not-found").WithCause(err)
		}
		if ctx.Err() != nil {
			return "", errors.NewPreviewTransformFailed("transform-failed").
				WithDetail("log", fmt.Sprintf("bundler timed out: %v", ctx.Err())).WithCause(ctx.Err())
		}

		return "", errors.NewPreviewTransformFailed("transform-failed").
			WithDetail("log", stderr.String()+stdout.String()).WithCause(err)
	}

	return stdout.String(), nil
}
