package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/origolabs/origo/internal/watcher"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const validPayload = `{
  "frontend_files": {
    "src/App.jsx": "export default function App() { return null }",
    "src/index.js": "import App from './App'",
    "public/index.html": "<div id=\"root\"></div>"
  },
  "backend_files": {
    "app/main.py": "from fastapi import FastAPI",
    "app/routes/__init__.py": "# routes",
    "app/routes/api.py": "from fastapi import APIRouter",
    "app/schemas/__init__.py": "# schemas",
    "app/models/__init__.py": "# models",
    "app/services/__init__.py": "# services"
  },
  "README": "# Shop"
}`

// inTempDir runs the test from an empty directory with no ORIGO_ overrides.
func inTempDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ORIGO_CONFIG_FILE", "")

	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func writeZip(t *testing.T, path string, files map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return writeFile(t, path, buf.String())
}

func TestValidateCommand(t *testing.T) {
	dir := inTempDir(t)
	good := writeFile(t, filepath.Join(dir, "good.json"), validPayload)
	bad := writeFile(t, filepath.Join(dir, "bad.json"), `{"frontend_files":{},"backend_files":{}}`)

	out, err := run(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Payload is valid")

	out, err = run(t, "validate", bad)
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "frontend_files must be a non-empty dict")

	out, err = run(t, "validate", bad, "--format", "json")
	assert.ErrorIs(t, err, errFailed)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, false, result["ok"])

	_, err = run(t, "validate", good, "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = run(t, "validate", filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read")
}

func TestValidateCommandStdin(t *testing.T) {
	inTempDir(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(validPayload))
	root.SetArgs([]string{"validate", "-"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Payload is valid")
}

func TestQualityCommand(t *testing.T) {
	dir := inTempDir(t)
	payload := writeFile(t, filepath.Join(dir, "p.json"), validPayload)

	out, err := run(t, "quality", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "production-readiness")

	out, err = run(t, "quality", "architecture", "testing", "--payload", payload)
	require.NoError(t, err)
	assert.Contains(t, out, "Architecture")
	assert.Contains(t, out, "Testing")
	assert.Contains(t, out, "(not evaluated)")

	out, err = run(t, "quality", "security", "--payload", payload, "--format", "yaml")
	require.NoError(t, err)
	var reports []map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "security", reports[0]["name"])

	_, err = run(t, "quality", "nope", "--payload", payload)
	assert.ErrorContains(t, err, `unknown quality check "nope"`)

	_, err = run(t, "quality", "security")
	assert.ErrorContains(t, err, "--payload is required")
}

func TestQualityCommandReportsFailures(t *testing.T) {
	dir := inTempDir(t)
	payload := writeFile(t, filepath.Join(dir, "p.json"), `{"frontend_files":{"a.js":"eval(x)"},"backend_files":{}}`)

	out, err := run(t, "quality", "security", "--payload", payload)
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "eval_usage")
}

func TestAuditCommand(t *testing.T) {
	dir := inTempDir(t)
	good := writeZip(t, filepath.Join(dir, "good.zip"), map[string]string{
		"frontend/package.json": "{}",
		"backend/app/main.py":   "",
	})
	bad := writeZip(t, filepath.Join(dir, "bad.zip"), map[string]string{"README.md": "x"})

	out, err := run(t, "audit", good, "--files")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "frontend/package.json")

	out, err = run(t, "audit", bad)
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "missing:frontend/package.json")
}

func TestPackCommand(t *testing.T) {
	dir := inTempDir(t)
	payload := writeFile(t, filepath.Join(dir, "p.json"), validPayload)

	out, err := run(t, "pack", payload, "--id", "shop", "--out", "dist", "--format", "json")
	require.NoError(t, err)
	var result packResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "shop", result.ProjectID)
	assert.FileExists(t, filepath.Join("dist", "shop.zip"))

	out, err = run(t, "pack", payload)
	require.NoError(t, err)
	assert.Contains(t, out, "Packed ")

	_, err = run(t, "pack", payload, "--id", "../escape")
	assert.ErrorContains(t, err, "invalid id")
}

func TestPreviewCommand(t *testing.T) {
	dir := inTempDir(t)
	site := writeZip(t, filepath.Join(dir, "site.zip"), map[string]string{
		"index.html": `<html><head><link rel="stylesheet" href="app.css"></head><body>hi</body></html>`,
		"app.css":    "body{color:red}",
	})

	out, err := run(t, "preview", "demo", site, "--output", "demo.html")
	require.NoError(t, err)
	assert.Contains(t, out, "previews/demo.html")

	stored, err := os.ReadFile(filepath.Join("storage", "previews", "demo.html"))
	require.NoError(t, err)
	assert.Contains(t, string(stored), "<style>body{color:red}</style>")
	assert.Contains(t, string(stored), "Content-Security-Policy")

	copied, err := os.ReadFile("demo.html")
	require.NoError(t, err)
	assert.Equal(t, stored, copied)

	missing := writeZip(t, filepath.Join(dir, "empty.zip"), map[string]string{"a.txt": "x"})
	_, err = run(t, "preview", "demo", missing)
	assert.ErrorContains(t, err, "PREVIEW_MISSING_FIELDS")
}

func TestProcessChanges(t *testing.T) {
	dir := inTempDir(t)
	site := writeZip(t, filepath.Join(dir, "drops", "shop.zip"), map[string]string{
		"frontend/package.json": "{}",
		"backend/app/main.py":   "",
		"index.html":            "<html><head></head><body></body></html>",
	})
	bad := writeZip(t, filepath.Join(dir, "drops", "bad.zip"), map[string]string{"x": "y"})

	a := &app{v: viper.New()}
	require.NoError(t, a.load())
	svc, err := a.services()
	require.NoError(t, err)

	var out bytes.Buffer
	err = processChanges(context.Background(), svc, &out, formatText, []watcher.ChangeEvent{
		{Type: watcher.EventTypeCreated, Path: site},
		{Type: watcher.EventTypeModified, Path: bad},
		{Type: watcher.EventTypeDeleted, Path: filepath.Join(dir, "drops", "gone.zip")},
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), site+": preview previews/shop.html")
	assert.Contains(t, out.String(), bad+": audit failed")
	assert.NotContains(t, out.String(), "gone.zip")
	assert.FileExists(t, filepath.Join("storage", "previews", "shop.html"))
}

func TestVersionCommand(t *testing.T) {
	inTempDir(t)
	// An unreadable config must not matter for version output.
	t.Setenv("ORIGO_CONFIG_FILE", "/nonexistent/origo.yml")

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "origo "))

	out, err = run(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "go_version")
}

func TestConfigSources(t *testing.T) {
	dir := inTempDir(t)
	writeFile(t, filepath.Join(dir, ".origo.yml"), "server:\n  port: 9100\nlog:\n  level: warn\n")

	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "port: 9100")
	assert.Contains(t, out, "level: warn")
	assert.NotContains(t, out, "secret_key")

	t.Setenv("ORIGO_SERVER_PORT", "9200")
	out, err = run(t, "config", "show", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"port": 9200`)

	out, err = run(t, "config", "show", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")

	out, err = run(t, "config", "show", "--log_level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "level: error")

	custom := writeFile(t, filepath.Join(dir, "custom.yml"), "server:\n  port: 9300\n")
	out, err = run(t, "--config", custom, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "port: 9200", "environment overrides the file")

	t.Setenv("ORIGO_SERVER_PORT", "")
	t.Setenv("ORIGO_CONFIG_FILE", custom)
	out, err = run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "custom.yml is valid")
}

func TestConfigErrors(t *testing.T) {
	dir := inTempDir(t)

	_, err := run(t, "--config", filepath.Join(dir, "missing.yml"), "config", "show")
	assert.ErrorContains(t, err, "failed to read config")

	writeFile(t, filepath.Join(dir, ".origo.yml"), "server:\n  port: 70000\n")
	_, err = run(t, "config", "show")
	assert.ErrorContains(t, err, "invalid configuration")

	writeFile(t, filepath.Join(dir, ".origo.yml"), "server:\n  allowed_origins: ['*']\n")
	out, err := run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "warning:")
}

func TestDotEnvIsLoaded(t *testing.T) {
	dir := inTempDir(t)
	writeFile(t, filepath.Join(dir, ".env"), "ORIGO_LOG_FORMAT=json\n")
	t.Cleanup(func() { os.Unsetenv("ORIGO_LOG_FORMAT") })

	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "format: json")
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Production Readiness", title("production-readiness"))
	assert.Equal(t, "Total Files", title("total_files"))
}
