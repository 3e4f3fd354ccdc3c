package quality

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/origolabs/origo/internal/project"
)

func textBytes(files project.Files) int {
	total := 0
	for _, src := range files.Sources() {
		total += len(src)
	}

	return total
}

// Performance sums the UTF-8 size of every source file and grades it against
// the warn and fail thresholds.
func (s *Service) Performance(p *project.Payload) Report {
	frontend := textBytes(p.Frontend)
	backend := textBytes(p.Backend)
	total := frontend + backend

	var issues []string
	level := "ok"
	if total > s.cfg.FailBytes {
		issues = append(issues, fmt.Sprintf("total_size_exceeds_%d_bytes", s.cfg.FailBytes))
		level = "fail"
	} else if total > s.cfg.WarnBytes {
		issues = append(issues, fmt.Sprintf("total_size_exceeds_warn_%d_bytes", s.cfg.WarnBytes))
		level = "warn"
	}

	return Report{
		OK:     len(issues) == 0,
		Issues: issues,
		Summary: map[string]interface{}{
			"total_bytes":    total,
			"frontend_bytes": frontend,
			"backend_bytes":  backend,
			"scripts":        countScripts(p.Frontend),
			"warn_threshold": s.cfg.WarnBytes,
			"fail_threshold": s.cfg.FailBytes,
			"level":          level,
		},
		Evaluated: true,
	}
}

func countScripts(files project.Files) int {
	n := 0
	for path := range files {
		if strings.HasSuffix(path, ".js") || strings.HasSuffix(path, ".jsx") {
			n++
		}
	}

	return n
}

// SizeReport is the raw size breakdown of a payload.
type SizeReport struct {
	FrontendFiles int `json:"frontend_files"`
	BackendFiles  int `json:"backend_files"`
	FrontendBytes int `json:"frontend_bytes"`
	BackendBytes  int `json:"backend_bytes"`
	Scripts       int `json:"scripts"`
}

// Sizes counts entries and UTF-8 bytes per section without grading them.
func Sizes(p *project.Payload) SizeReport {
	if p == nil {
		p = &project.Payload{}
	}

	return SizeReport{
		FrontendFiles: len(p.Frontend),
		BackendFiles:  len(p.Backend),
		FrontendBytes: textBytes(p.Frontend),
		BackendBytes:  textBytes(p.Backend),
		Scripts:       countScripts(p.Frontend),
	}
}

// Security scans sources and README for leaked secrets and unsafe APIs, and
// audits Python requirement files for unpinned or denied packages.
func (s *Service) Security(p *project.Payload) Report {
	sources := p.Sources()

	var issues []string
	for _, src := range append(sources, p.READMEText()) {
		if src == "" {
			continue
		}
		for _, pat := range s.cfg.SecurityPatterns {
			if pat.Regexp.MatchString(src) {
				issues = append(issues, pat.Code)
			}
		}
	}

	for _, name := range s.cfg.RequirementsFiles {
		if reqs, ok := p.Backend.Text(name); ok {
			issues = append(issues, s.auditRequirements(reqs)...)
		}
	}

	issues = dedupe(issues)

	return Report{
		OK:     len(issues) == 0,
		Issues: issues,
		Summary: map[string]interface{}{
			"scanned_files":    len(sources),
			"patterns":         len(s.cfg.SecurityPatterns),
			"dependency_audit": true,
		},
		Evaluated: true,
	}
}

func (s *Service) auditRequirements(text string) []string {
	var issues []string
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "==") {
			issues = append(issues, "unpinned_dependency")
		}
		name := strings.ToLower(strings.TrimSpace(strings.SplitN(line, "==", 2)[0]))
		for _, denied := range s.cfg.DenyList {
			if name == denied {
				issues = append(issues, "known_vulnerable_package")
				break
			}
		}
	}

	return issues
}

// Architecture requires both a frontend and a backend.
func (s *Service) Architecture(p *project.Payload) Report {
	hasFrontend := !p.Frontend.Empty()
	hasBackend := !p.Backend.Empty()

	var issues []string
	if !hasFrontend {
		issues = append(issues, "missing_frontend")
	}
	if !hasBackend {
		issues = append(issues, "missing_backend")
	}

	return Report{
		OK:     len(issues) == 0,
		Issues: issues,
		Summary: map[string]interface{}{
			"has_frontend": hasFrontend,
			"has_backend":  hasBackend,
		},
		Evaluated: true,
	}
}

// Linting flags tabs, trailing whitespace and lines over the length limit.
func (s *Service) Linting(p *project.Payload) Report {
	sources := p.Sources()

	var issues []string
	longLines := 0
	for _, src := range sources {
		for _, line := range splitLines(src) {
			if utf8.RuneCountInString(line) > s.cfg.LongLineLimit {
				longLines++
			}
		}
		for _, pat := range s.cfg.LintPatterns {
			if pat.Regexp.MatchString(src) {
				issues = append(issues, pat.Code)
			}
		}
	}
	if longLines > 0 {
		issues = append(issues, "long_lines")
	}
	issues = dedupe(issues)

	return Report{
		OK:     len(issues) == 0,
		Issues: issues,
		Summary: map[string]interface{}{
			"files":      len(sources),
			"long_lines": longLines,
		},
		Evaluated: true,
	}
}

// splitLines breaks s at \n, \r, \r\n, \v, \f, \x1c-\x1e, U+0085, U+2028 and
// U+2029, without yielding an empty line after a final break.
func splitLines(s string) []string {
	var lines []string
	for s != "" {
		i := strings.IndexFunc(s, isLineBreak)
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i])

		r, size := utf8.DecodeRuneInString(s[i:])
		s = s[i+size:]
		if r == '\r' && strings.HasPrefix(s, "\n") {
			s = s[1:]
		}
	}

	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}

	return false
}
