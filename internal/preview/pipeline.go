// Package preview turns an uploaded project archive into a single
// self-contained HTML document: scripts are bundled and inlined, stylesheets
// and images are embedded, and a restrictive CSP is injected.
package preview

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/origolabs/origo/internal/archive"
	"github.com/origolabs/origo/internal/errors"
	"github.com/origolabs/origo/internal/logging"
	"github.com/origolabs/origo/internal/validation"
)

// DefaultEntries are the entry documents probed, in order.
var DefaultEntries = []string{"index.html", "public/index.html", "dist/index.html", "frontend/index.html"}

// EventType identifies a pipeline lifecycle event.
type EventType string

// Pipeline lifecycle events.
const (
	EventStarted   EventType = "preview.start"
	EventCompleted EventType = "preview.complete"
	EventFailed    EventType = "preview.failed"
)

// Event is emitted to the pipeline's observer.
type Event struct {
	Type      EventType     `json:"type"`
	ProjectID string        `json:"project_id"`
	Path      string        `json:"preview_path,omitempty"`
	ErrorCode string        `json:"error_code,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
	Assets    *Manifest     `json:"assets,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Options configures a Pipeline.
type Options struct {
	Bundler Bundler
	Store   Store
	Logger  logging.Logger
	// MaxUncompressedBytes caps extraction; zero disables the cap.
	MaxUncompressedBytes int64
	// Entries overrides DefaultEntries.
	Entries []string
	// CSP overrides DefaultCSP.
	CSP *CSP
	// OnEvent, when set, receives lifecycle events synchronously.
	OnEvent func(Event)
}

// Pipeline generates and persists previews. It holds no per-call state and
// is safe for concurrent use.
type Pipeline struct {
	bundler Bundler
	store   Store
	logger  logging.Logger
	limit   int64
	entries []string
	csp     CSP
	onEvent func(Event)
}

// NewPipeline creates a pipeline. Bundler and Store are required.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Bundler == nil {
		return nil, fmt.Errorf("bundler is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	entries := opts.Entries
	if len(entries) == 0 {
		entries = DefaultEntries
	}
	csp := DefaultCSP
	if opts.CSP != nil {
		csp = *opts.CSP
	}

	return &Pipeline{
		bundler: opts.Bundler,
		store:   opts.Store,
		logger:  logger.WithComponent("preview"),
		limit:   opts.MaxUncompressedBytes,
		entries: entries,
		csp:     csp,
		onEvent: opts.OnEvent,
	}, nil
}

// CSP returns the policy injected into previews.
func (p *Pipeline) CSP() CSP {
	return p.csp
}

func (p *Pipeline) emit(e Event) {
	if p.onEvent == nil {
		return
	}
	e.Timestamp = time.Now()
	p.onEvent(e)
}

// Generate builds the preview for projectID from archive bytes, stores it
// under previews/<projectID>.html and returns it. Every failure, including a
// panicking Bundler or Store, is a typed preview error.
func (p *Pipeline) Generate(ctx context.Context, projectID string, data []byte) (html string, err error) {
	start := time.Now()
	logger := p.logger.With("project_id", projectID)
	logger.Info(ctx, "preview.start")
	p.emit(Event{Type: EventStarted, ProjectID: projectID})

	var manifest Manifest
	html, manifest, err = p.safeGenerate(ctx, logger, projectID, data)
	if err != nil {
		if !errors.IsPreviewError(err) {
			logger.Error(ctx, err, "preview unexpected", "phase", "preview")
			err = errors.NewPreviewUnexpected("").WithDetail("project_id", projectID).WithCause(err)
		}
		p.emit(Event{
			Type:      EventFailed,
			ProjectID: projectID,
			ErrorCode: errors.CodeOf(err),
			Duration:  time.Since(start),
		})
		return "", err
	}

	logger.Info(ctx, "preview.complete", "duration", time.Since(start))
	p.emit(Event{
		Type:      EventCompleted,
		ProjectID: projectID,
		Path:      Key(projectID),
		Duration:  time.Since(start),
		Assets:    &manifest,
	})

	return html, nil
}

// safeGenerate turns a panic into an error; the scratch directory is still
// removed by generate's deferred cleanup.
func (p *Pipeline) safeGenerate(ctx context.Context, logger logging.Logger, projectID string, data []byte) (html string, manifest Manifest, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("preview panic: %v", r)
		}
	}()

	return p.generate(ctx, logger, projectID, data)
}

func (p *Pipeline) generate(ctx context.Context, logger logging.Logger, projectID string, data []byte) (string, Manifest, error) {
	var manifest Manifest
	if projectID == "" || data == nil {
		logger.Error(ctx, nil, "preview invalid input", "error", "invalid-input", "phase", "preview")
		return "", manifest, errors.NewPreviewInputInvalid("").WithDetail("project_id", projectID)
	}
	if err := validation.ValidateStorageKey(projectID); err != nil {
		logger.Error(ctx, err, "preview invalid project id", "phase", "preview")
		return "", manifest, errors.NewPreviewInputInvalid("").WithDetail("project_id", projectID).WithCause(err)
	}

	logger.Info(ctx, "preview.extract.zip", "bytes", len(data))
	root, cleanup, err := archive.Extract(data, p.limit)
	if err != nil {
		logger.Error(ctx, err, "preview error during zip extract", "phase", "preview")
		return "", manifest, errors.NewPreviewInputInvalid("zip-error").WithCause(err)
	}
	defer cleanup()

	entry, err := p.findEntry(root)
	if err != nil {
		logger.Error(ctx, err, "preview missing index.html", "error", "missing-index", "phase", "preview")
		return "", manifest, err
	}

	raw, err := os.ReadFile(entry)
	if err != nil {
		return "", manifest, fmt.Errorf("read entry: %w", err)
	}
	doc := string(raw)

	manifest = Inspect(doc)
	logger.Debug(ctx, "preview.assets",
		"scripts", len(manifest.Scripts),
		"stylesheets", len(manifest.Stylesheets),
		"images", len(manifest.Images))

	rw := &rewriter{
		root:    root,
		dir:     filepath.Dir(entry),
		bundler: p.bundler,
		logger:  logger,
	}
	doc, err = rw.rewrite(ctx, doc)
	if err != nil {
		return "", manifest, err
	}
	doc = injectCSP(doc, p.csp)

	if err := p.store.Put(ctx, projectID, doc); err != nil {
		return "", manifest, fmt.Errorf("store preview: %w", err)
	}
	logger.Info(ctx, "preview.write.storage.ok", "path", Key(projectID))

	return doc, manifest, nil
}

func (p *Pipeline) findEntry(root string) (string, error) {
	for _, candidate := range p.entries {
		path := filepath.Join(root, filepath.FromSlash(candidate))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	return "", errors.NewPreviewMissingFields("index.html required")
}

// Load returns a previously generated preview.
func (p *Pipeline) Load(ctx context.Context, projectID string) (string, error) {
	if err := validation.ValidateStorageKey(projectID); err != nil {
		return "", errors.NewPreviewInputInvalid("").WithDetail("project_id", projectID).WithCause(err)
	}

	html, err := p.store.Get(ctx, projectID)
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return "", errors.NewPreviewNotFound("").WithDetail("project_id", projectID)
		}
		p.logger.Error(ctx, err, "preview load failed", "project_id", projectID)
		return "", errors.NewPreviewUnexpected("").WithDetail("project_id", projectID).WithCause(err)
	}

	return html, nil
}
