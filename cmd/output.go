package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/origolabs/origo/internal/project"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var titler = cases.Title(language.English)

// title turns a check or field name such as "production-readiness" into
// "Production Readiness".
func title(name string) string {
	return titler.String(strings.NewReplacer("-", " ", "_", " ").Replace(name))
}

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "format", "f", formatText, "Output format (text, json, yaml)")
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}
}

// render writes v as JSON or YAML, or calls text for the text format.
func render(w io.Writer, format string, v interface{}, text func(io.Writer)) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatText:
		text(w)
		return nil
	default:
		return checkFormat(format)
	}
}

func writeIssues(w io.Writer, indent string, issues []string) {
	for _, issue := range issues {
		fmt.Fprintf(w, "%s- %s\n", indent, issue)
	}
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

// readInput reads path, or standard input when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

// readPayload reads a JSON payload file whose top level must be an object.
func readPayload(cmd *cobra.Command, path string) (*project.Payload, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	p, err := project.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload %s: %w", path, err)
	}

	return p, nil
}
