// Package quality implements the heuristic quality checks run against a
// generated project. Every check is a pure function of the payload: it never
// fails, never mutates its input, and returns the same report for the same
// payload.
package quality

import (
	"regexp"
	"sort"

	"github.com/origolabs/origo/internal/project"
	"github.com/origolabs/origo/internal/validation"
)

// Report is the result of one check. Name, OK, Issues and Summary are part of
// the wire contract. Evaluated is false for placeholder checks whose OK value
// means "not evaluated" rather than "verified".
type Report struct {
	Name      string                 `json:"name" yaml:"name"`
	OK        bool                   `json:"ok" yaml:"ok"`
	Issues    []string               `json:"issues" yaml:"issues"`
	Summary   map[string]interface{} `json:"summary" yaml:"summary"`
	Evaluated bool                   `json:"evaluated" yaml:"evaluated"`
}

// Pattern maps a regular expression to the issue code it raises.
type Pattern struct {
	Regexp *regexp.Regexp
	Code   string
}

// Config holds the thresholds and tables used by the checks.
type Config struct {
	WarnBytes         int
	FailBytes         int
	LongLineLimit     int
	SecurityPatterns  []Pattern
	LintPatterns      []Pattern
	RequirementsFiles []string
	DenyList          []string
}

// DefaultConfig returns the stock thresholds: warn at 100KB, fail at 200KB,
// 120 character lines.
func DefaultConfig() Config {
	return Config{
		WarnBytes:     100_000,
		FailBytes:     200_000,
		LongLineLimit: 120,
		SecurityPatterns: []Pattern{
			{regexp.MustCompile(`(?i)SECRET\s*[_-]?KEY\s*[:=]`), "secret_key_leak"},
			{regexp.MustCompile(`(?i)API\s*[_-]?KEY\s*[:=]`), "api_key_leak"},
			{regexp.MustCompile(`(?i)eval\s*\(`), "eval_usage"},
			{regexp.MustCompile(`(?i)document\.write\s*\(`), "document_write_usage"},
			{regexp.MustCompile(`(?i)http://`), "insecure_http_reference"},
		},
		LintPatterns: []Pattern{
			{regexp.MustCompile(`\t`), "tab_character"},
			{regexp.MustCompile(`(?m)[ \t]+$`), "trailing_whitespace"},
		},
		RequirementsFiles: []string{"requirements.txt", "backend/requirements.txt"},
		DenyList:          []string{"insecurepkg", "vulnpkg"},
	}
}

// CheckFunc is the signature shared by every check.
type CheckFunc func(p *project.Payload) Report

// Service groups the checks under their wire names.
type Service struct {
	cfg       Config
	validator *validation.Validator
	checks    map[string]CheckFunc
	order     []string
}

// NewService creates a service. A nil validator uses the default rules.
func NewService(cfg Config, validator *validation.Validator) *Service {
	if validator == nil {
		validator = validation.NewValidator(validation.DefaultRules())
	}
	s := &Service{
		cfg:       cfg,
		validator: validator,
		checks:    make(map[string]CheckFunc),
	}

	s.register("performance", s.Performance)
	s.register("security", s.Security)
	s.register("architecture", s.Architecture)
	s.register("linting", s.Linting)
	for _, st := range placeholders {
		s.register(st.name, st.check)
	}

	s.register("route-mapping", s.RouteMapping)
	s.register("react-analyzer", s.ReactAnalyzer)
	s.register("buildability", s.Buildability)
	s.register("error-simulation", s.ErrorSimulation)
	s.register("production-readiness", s.ProductionReadiness)

	return s
}

func (s *Service) register(name string, fn CheckFunc) {
	s.checks[name] = func(p *project.Payload) Report {
		if p == nil {
			p = &project.Payload{}
		}
		r := fn(p)
		r.Name = name
		if r.Issues == nil {
			r.Issues = make([]string, 0)
		}
		if r.Summary == nil {
			r.Summary = map[string]interface{}{}
		}

		return r
	}
	s.order = append(s.order, name)
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Names lists every check in registration order.
func (s *Service) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)

	return out
}

// Has reports whether a check is registered under name.
func (s *Service) Has(name string) bool {
	_, ok := s.checks[name]

	return ok
}

// Run executes the named check.
func (s *Service) Run(name string, p *project.Payload) (Report, bool) {
	fn, ok := s.checks[name]
	if !ok {
		return Report{}, false
	}

	return fn(p), true
}

// RunAll executes the given checks, or every check when names is empty.
// Unknown names are skipped.
func (s *Service) RunAll(p *project.Payload, names ...string) []Report {
	if len(names) == 0 {
		names = s.order
	}
	reports := make([]Report, 0, len(names))
	for _, name := range names {
		if r, ok := s.Run(name, p); ok {
			reports = append(reports, r)
		}
	}

	return reports
}

// dedupe returns the sorted set of issues.
func dedupe(issues []string) []string {
	seen := make(map[string]struct{}, len(issues))
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Strings(out)

	return out
}
