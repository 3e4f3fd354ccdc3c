package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/origolabs/origo/internal/config"
	"github.com/origolabs/origo/internal/errors"
	"github.com/origolabs/origo/internal/preview"
	"github.com/origolabs/origo/internal/project"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
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

	return buf.Bytes()
}

func packagedProject(t *testing.T) []byte {
	return zipBytes(t, map[string]string{
		"frontend/package.json": `{"name":"demo"}`,
		"frontend/index.html":   `<html><head></head><body><script src="src/main.js"></script></body></html>`,
		"frontend/src/main.js":  "console.log(1)",
		"backend/app/main.py":   "app = None",
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()

	return cfg
}

func newTestServices(t *testing.T, opts ...Option) *Services {
	t.Helper()

	bundler := preview.BundlerFunc(func(context.Context, string) (string, error) {
		return "bundled()", nil
	})
	s, err := New(testConfig(t), nil, append([]Option{WithBundler(bundler)}, opts...)...)
	require.NoError(t, err)

	return s
}

func TestNewDefaults(t *testing.T) {
	s, err := New(testConfig(t), nil)
	require.NoError(t, err)

	assert.NotNil(t, s.Validator)
	assert.NotNil(t, s.Pipeline)
	assert.NotNil(t, s.Metrics)
	assert.IsType(t, &preview.CachedStore{}, s.Store)
	assert.Equal(t, 100_000, s.Quality.Config().WarnBytes)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestNewRejectsUnsafeBundler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Preview.BundlerCommand = "sh"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(config.StorageConfig{Backend: config.BackendFile, Dir: dir}, 0)
	require.NoError(t, err)
	assert.IsType(t, &preview.FileStore{}, store)

	store, err = NewStore(config.StorageConfig{Backend: config.BackendFile, Dir: dir}, 4)
	require.NoError(t, err)
	assert.IsType(t, &preview.CachedStore{}, store)

	store, err = NewStore(config.StorageConfig{
		Backend: config.BackendS3,
		S3: config.S3Config{
			Endpoint:  "localhost:9000",
			AccessKey: "minio",
			SecretKey: "minio123",
			Bucket:    "previews",
		},
	}, 0)
	require.NoError(t, err)
	assert.IsType(t, &preview.S3Store{}, store)

	_, err = NewStore(config.StorageConfig{Backend: "tape"}, 0)
	assert.Error(t, err)
}

func TestQualityConfigFromSettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Quality.WarnBytes = 10
	cfg.Quality.FailBytes = 100
	cfg.Quality.DenyList = []string{"leftpad"}

	s, err := New(cfg, nil, WithBundler(preview.BundlerFunc(func(context.Context, string) (string, error) {
		return "", nil
	})))
	require.NoError(t, err)

	p := project.New(map[string]string{"a.js": "0123456789012345"}, map[string]string{
		"requirements.txt": "leftpad==1.0\n",
	}, "r")

	perf, ok := s.RunCheck("performance", p)
	require.True(t, ok)
	assert.Equal(t, []string{"total_size_exceeds_warn_10_bytes"}, perf.Issues)

	sec, ok := s.RunCheck("security", p)
	require.True(t, ok)
	assert.Equal(t, []string{"known_vulnerable_package"}, sec.Issues)
}

func TestRunChecksRecordsMetrics(t *testing.T) {
	s := newTestServices(t)

	reports := s.RunChecks(project.New(nil, nil, ""), "architecture", "nope")
	require.Len(t, reports, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.ChecksTotal.WithLabelValues("architecture", "false")))

	_, ok := s.RunCheck("nope", nil)
	assert.False(t, ok)
}

func TestAuditRecordsMetrics(t *testing.T) {
	s := newTestServices(t)

	assert.True(t, s.Audit(context.Background(), packagedProject(t)).OK)
	assert.False(t, s.Audit(context.Background(), []byte("junk")).OK)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.ArchiveAudits.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.ArchiveAudits.WithLabelValues("false")))
}

func TestPreviewEventsReachSinks(t *testing.T) {
	var events []preview.Event
	s := newTestServices(t, WithEventSink(func(e preview.Event) { events = append(events, e) }))

	html, err := s.Preview(context.Background(), "demo", packagedProject(t))
	require.NoError(t, err)
	assert.Contains(t, html, "bundled()")

	loaded, err := s.LoadPreview(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, html, loaded)

	_, err = s.Preview(context.Background(), "demo", []byte("junk"))
	require.Error(t, err)
	assert.Equal(t, errors.CodePreviewInputInvalid, errors.CodeOf(err))

	require.Len(t, events, 4)
	assert.Equal(t, preview.EventCompleted, events[1].Type)
	assert.Equal(t, preview.EventFailed, events[3].Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.PreviewsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.PreviewsTotal.WithLabelValues(errors.CodePreviewInputInvalid)))
}

func TestBundleTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Preview.BundleTimeout = 20 * time.Millisecond

	slow := preview.BundlerFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", errors.NewPreviewTransformFailed("transform-failed").WithDetail("log", ctx.Err().Error())
	})
	s, err := New(cfg, nil, WithBundler(slow))
	require.NoError(t, err)

	_, err = s.Preview(context.Background(), "slow", packagedProject(t))
	assert.Equal(t, errors.CodePreviewTransformFailed, errors.CodeOf(err))
}

func TestProcessArchive(t *testing.T) {
	s := newTestServices(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "shop-42.zip")
	require.NoError(t, os.WriteFile(good, packagedProject(t), 0o644))

	result := s.ProcessArchive(context.Background(), good)
	assert.Empty(t, result.Error)
	assert.Equal(t, "shop-42", result.ProjectID)
	assert.True(t, result.Audit.OK)
	assert.Equal(t, "previews/shop-42.html", result.Preview)

	incomplete := filepath.Join(dir, "half.zip")
	require.NoError(t, os.WriteFile(incomplete, zipBytes(t, map[string]string{"frontend/index.html": "<p>"}), 0o644))

	result = s.ProcessArchive(context.Background(), incomplete)
	assert.False(t, result.Audit.OK)
	assert.Empty(t, result.Preview)

	result = s.ProcessArchive(context.Background(), filepath.Join(dir, "missing.zip"))
	assert.NotEmpty(t, result.Error)
}

func TestProcessArchiveSizeLimit(t *testing.T) {
	s := newTestServices(t)
	s.Config.Preview.MaxArchiveBytes = 10

	path := filepath.Join(t.TempDir(), "big.zip")
	require.NoError(t, os.WriteFile(path, packagedProject(t), 0o644))

	result := s.ProcessArchive(context.Background(), path)
	assert.Contains(t, result.Error, "exceeds 10 bytes")
}

func TestProjectIDFromPath(t *testing.T) {
	assert.Equal(t, "shop-42", ProjectIDFromPath("dist/shop-42.zip"))
	assert.Equal(t, "plain", ProjectIDFromPath("plain"))
}
