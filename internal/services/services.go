// Package services assembles the validation, quality, archive and preview
// components from configuration and records their outcomes as metrics. The
// HTTP server, the CLI and the archive watcher all go through Services.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/origolabs/origo/internal/archive"
	"github.com/origolabs/origo/internal/config"
	"github.com/origolabs/origo/internal/logging"
	"github.com/origolabs/origo/internal/metrics"
	"github.com/origolabs/origo/internal/preview"
	"github.com/origolabs/origo/internal/project"
	"github.com/origolabs/origo/internal/quality"
	"github.com/origolabs/origo/internal/validation"
)

// Services holds the wired components.
type Services struct {
	Config    *config.Config
	Logger    logging.Logger
	Validator *validation.Validator
	Quality   *quality.Service
	Auditor   *archive.Auditor
	Store     preview.Store
	Pipeline  *preview.Pipeline
	Metrics   *metrics.Metrics
}

type options struct {
	bundler preview.Bundler
	store   preview.Store
	metrics *metrics.Metrics
	sinks   []func(preview.Event)
}

// Option customizes New.
type Option func(*options)

// WithBundler replaces the esbuild subprocess bundler.
func WithBundler(b preview.Bundler) Option {
	return func(o *options) { o.bundler = b }
}

// WithStore replaces the configured preview store.
func WithStore(s preview.Store) Option {
	return func(o *options) { o.store = s }
}

// WithMetrics records outcomes on m instead of a private registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithEventSink forwards preview lifecycle events to fn.
func WithEventSink(fn func(preview.Event)) Option {
	return func(o *options) {
		if fn != nil {
			o.sinks = append(o.sinks, fn)
		}
	}
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Format,
		Output: os.Stderr,
	}), nil
}

// NewStore builds the preview store selected by cfg, wrapped in a read
// cache when cacheSize is positive.
func NewStore(cfg config.StorageConfig, cacheSize int) (preview.Store, error) {
	var (
		store preview.Store
		err   error
	)
	switch cfg.Backend {
	case config.BackendFile, "":
		store, err = preview.NewFileStore(cfg.Dir)
	case config.BackendS3:
		store, err = preview.NewS3Store(preview.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cacheSize > 0 {
		return preview.NewCachedStore(store, cacheSize)
	}

	return store, nil
}

// New wires every component from cfg.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}

	store := o.store
	if store == nil {
		var err error
		store, err = NewStore(cfg.Storage, cfg.Preview.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create preview store: %w", err)
		}
	}

	bundler := o.bundler
	if bundler == nil {
		esbuild := preview.NewESBuild(cfg.Preview.BundlerCommand, cfg.Preview.BundlerArgs)
		if err := esbuild.Validate(); err != nil {
			return nil, fmt.Errorf("invalid bundler configuration: %w", err)
		}
		bundler = esbuild
	}
	bundler = withTimeout(bundler, cfg.Preview.BundleTimeout)

	validator := validation.NewValidator(validation.DefaultRules())

	qcfg := quality.DefaultConfig()
	qcfg.WarnBytes = cfg.Quality.WarnBytes
	qcfg.FailBytes = cfg.Quality.FailBytes
	qcfg.LongLineLimit = cfg.Quality.LongLineLimit
	if cfg.Quality.DenyList != nil {
		qcfg.DenyList = cfg.Quality.DenyList
	}

	s := &Services{
		Config:    cfg,
		Logger:    logger,
		Validator: validator,
		Quality:   quality.NewService(qcfg, validator),
		Auditor:   archive.NewAuditor(archive.DefaultRequired, cfg.Preview.MaxUncompressedBytes(), logger),
		Store:     store,
		Metrics:   o.metrics,
	}

	pipeline, err := preview.NewPipeline(preview.Options{
		Bundler:              bundler,
		Store:                store,
		Logger:               logger,
		MaxUncompressedBytes: cfg.Preview.MaxUncompressedBytes(),
		OnEvent:              s.observer(o.sinks),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create preview pipeline: %w", err)
	}
	s.Pipeline = pipeline

	return s, nil
}

func (s *Services) observer(sinks []func(preview.Event)) func(preview.Event) {
	return func(e preview.Event) {
		switch e.Type {
		case preview.EventCompleted:
			s.Metrics.RecordPreview("ok", e.Duration.Seconds())
		case preview.EventFailed:
			s.Metrics.RecordPreview(e.ErrorCode, e.Duration.Seconds())
		}
		for _, sink := range sinks {
			sink(e)
		}
	}
}

// Validate runs the payload validator.
func (s *Services) Validate(raw interface{}) validation.Result {
	return s.Validator.Validate(raw)
}

// RunCheck runs one named quality check. ok is false for unknown names.
func (s *Services) RunCheck(name string, p *project.Payload) (quality.Report, bool) {
	report, ok := s.Quality.Run(name, p)
	if ok {
		s.Metrics.RecordCheck(name, report.OK)
	}

	return report, ok
}

// RunChecks runs the named checks, or all of them when names is empty.
func (s *Services) RunChecks(p *project.Payload, names ...string) []quality.Report {
	reports := s.Quality.RunAll(p, names...)
	for _, r := range reports {
		s.Metrics.RecordCheck(r.Name, r.OK)
	}

	return reports
}

// Audit analyzes archive bytes.
func (s *Services) Audit(ctx context.Context, data []byte) archive.Audit {
	audit := s.Auditor.Analyze(ctx, data)
	s.Metrics.RecordAudit(audit.OK)

	return audit
}

// Preview generates and stores the preview of projectID.
func (s *Services) Preview(ctx context.Context, projectID string, data []byte) (string, error) {
	return s.Pipeline.Generate(ctx, projectID, data)
}

// LoadPreview returns a stored preview.
func (s *Services) LoadPreview(ctx context.Context, projectID string) (string, error) {
	return s.Pipeline.Load(ctx, projectID)
}

// ArchiveResult is the outcome of processing one archive file.
type ArchiveResult struct {
	Path      string        `json:"path" yaml:"path"`
	ProjectID string        `json:"project_id" yaml:"project_id"`
	Audit     archive.Audit `json:"audit" yaml:"audit"`
	Preview   string        `json:"preview_path,omitempty" yaml:"preview_path,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProjectIDFromPath derives a project id from an archive file name:
// dist/shop-42.zip becomes shop-42.
func ProjectIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ProcessArchive audits the archive at path and, when the audit passes,
// generates its preview under the id derived from the file name.
func (s *Services) ProcessArchive(ctx context.Context, path string) ArchiveResult {
	result := ArchiveResult{Path: path, ProjectID: ProjectIDFromPath(path)}
	op := logging.StartOperation(s.Logger.With("path", path), "process_archive")
	defer func() {
		if result.Error != "" {
			op.EndWithError(ctx, errors.New(result.Error))
			return
		}
		op.End(ctx)
	}()

	info, err := os.Stat(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if limit := s.Config.Preview.MaxArchiveBytes; limit > 0 && info.Size() > limit {
		result.Error = fmt.Sprintf("archive exceeds %d bytes", limit)
		return result
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Audit = s.Audit(ctx, data)
	if !result.Audit.OK {
		return result
	}

	if _, err := s.Preview(ctx, result.ProjectID, data); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Preview = preview.Key(result.ProjectID)

	return result
}

// timeoutBundler bounds each bundler run.
type timeoutBundler struct {
	next    preview.Bundler
	timeout time.Duration
}

func withTimeout(b preview.Bundler, d time.Duration) preview.Bundler {
	if d <= 0 {
		return b
	}

	return &timeoutBundler{next: b, timeout: d}
}

func (t *timeoutBundler) Bundle(ctx context.Context, entry string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return t.next.Bundle(ctx, entry)
}
