package archive

import (
	"context"
	"strings"

	"github.com/origolabs/origo/internal/logging"
)

// Summary describes the layout of an audited archive.
type Summary struct {
	HasFrontend bool `json:"has_frontend" yaml:"has_frontend"`
	HasBackend  bool `json:"has_backend" yaml:"has_backend"`
	TotalFiles  int  `json:"total_files" yaml:"total_files"`
}

// Audit is the result of Analyze.
type Audit struct {
	OK      bool     `json:"ok" yaml:"ok"`
	Issues  []string `json:"issues" yaml:"issues"`
	Files   []string `json:"files" yaml:"files"`
	Summary Summary  `json:"summary" yaml:"summary"`
}

// DefaultRequired are the files every packaged project must contain.
var DefaultRequired = []string{"frontend/package.json", "backend/app/main.py"}

// Auditor checks uploaded project archives.
type Auditor struct {
	required []string
	limit    int64
	logger   logging.Logger
}

// NewAuditor creates an auditor. limit caps the uncompressed size of a test
// extraction; a nil logger discards output.
func NewAuditor(required []string, limit int64, logger logging.Logger) *Auditor {
	if required == nil {
		required = DefaultRequired
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &Auditor{
		required: required,
		limit:    limit,
		logger:   logger.WithComponent("archive"),
	}
}

// Analyze audits archive bytes with the default required files and no size
// cap.
func Analyze(data []byte) Audit {
	return NewAuditor(nil, 0, nil).Analyze(context.Background(), data)
}

func invalid() Audit {
	return Audit{
		OK:     false,
		Issues: []string{"invalid_zip"},
		Files:  []string{},
	}
}

// Analyze never fails: unreadable or unextractable input yields the
// invalid_zip audit.
func (a *Auditor) Analyze(ctx context.Context, data []byte) Audit {
	r, err := Open(data)
	if err != nil {
		a.logger.Warn(ctx, err, "archive could not be opened")
		return invalid()
	}

	// A trial extraction surfaces corrupt entries that the directory alone
	// does not reveal.
	_, cleanup, err := Extract(data, a.limit)
	if err != nil {
		a.logger.Warn(ctx, err, "archive extraction failed")
		return invalid()
	}
	cleanup()

	files := Files(r)
	issues := make([]string, 0)
	if len(files) == 0 {
		issues = append(issues, "empty_zip")
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	for _, req := range a.required {
		if !present[req] {
			issues = append(issues, "missing:"+req)
		}
	}

	audit := Audit{
		OK:     len(issues) == 0,
		Issues: issues,
		Files:  files,
		Summary: Summary{
			HasFrontend: hasDir(files, "frontend"),
			HasBackend:  hasDir(files, "backend"),
			TotalFiles:  len(files),
		},
	}
	a.logger.Debug(ctx, "archive audited", "files", len(files), "ok", audit.OK)

	return audit
}

func hasDir(files []string, dir string) bool {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	for _, f := range files {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}

	return false
}
