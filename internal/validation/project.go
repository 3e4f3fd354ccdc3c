package validation

import (
	"fmt"

	"github.com/origolabs/origo/internal/project"
)

// Rules lists the files a generated project must contain to be buildable.
type Rules struct {
	RequiredFrontend []string
	RequiredBackend  []string
}

// DefaultRules returns the minimal React frontend and FastAPI backend skeleton.
func DefaultRules() Rules {
	return Rules{
		RequiredFrontend: []string{
			"src/App.jsx",
			"src/index.js",
			"public/index.html",
		},
		RequiredBackend: []string{
			"app/main.py",
			"app/routes/__init__.py",
			"app/routes/api.py",
			"app/schemas/__init__.py",
			"app/models/__init__.py",
			"app/services/__init__.py",
		},
	}
}

// Result is the outcome of validating a payload. Issues keep discovery order.
type Result struct {
	OK     bool     `json:"ok" yaml:"ok"`
	Issues []string `json:"issues" yaml:"issues"`
}

// Validator checks payloads against a fixed rule set. It holds no state and is
// safe for concurrent use.
type Validator struct {
	rules Rules
}

// NewValidator creates a validator for rules.
func NewValidator(rules Rules) *Validator {
	return &Validator{rules: rules}
}

// Rules returns the validator's rule set.
func (v *Validator) Rules() Rules {
	return v.rules
}

// ValidateProjectOutput validates raw with the default rules.
func ValidateProjectOutput(raw interface{}) Result {
	return NewValidator(DefaultRules()).Validate(raw)
}

// Validate checks a decoded JSON value. It never fails; every violated rule
// contributes one issue line.
func (v *Validator) Validate(raw interface{}) Result {
	p, ok := project.FromValue(raw)
	if !ok {
		return Result{OK: false, Issues: []string{"Output is not a dict"}}
	}

	return v.ValidatePayload(p)
}

// ValidatePayload checks an already interpreted payload.
func (v *Validator) ValidatePayload(p *project.Payload) Result {
	issues := make([]string, 0)

	if p.Frontend.Empty() {
		issues = append(issues, "frontend_files must be a non-empty dict")
	}
	if p.Backend.Empty() {
		issues = append(issues, "backend_files must be a non-empty dict")
	}
	if !project.IsNonEmptyText(p.README) {
		issues = append(issues, "README must be a non-empty string")
	}

	if p.Frontend != nil {
		for _, req := range v.rules.RequiredFrontend {
			if !project.IsNonEmptyText(p.Frontend[req]) {
				issues = append(issues, "Missing required frontend file: "+req)
			}
		}
		issues = append(issues, checkEntries("frontend", p.Frontend)...)
	}

	if p.Backend != nil {
		for _, req := range v.rules.RequiredBackend {
			if !project.IsNonEmptyText(p.Backend[req]) {
				issues = append(issues, "Missing required backend file: "+req)
			}
		}
		issues = append(issues, checkEntries("backend", p.Backend)...)
	}

	return Result{OK: len(issues) == 0, Issues: issues}
}

func checkEntries(side string, files project.Files) []string {
	var issues []string
	for _, path := range files.Paths() {
		if !IsValidRelativeFile(path) {
			issues = append(issues, fmt.Sprintf("Invalid %s filename: %s", side, path))
		}
		if !project.IsNonEmptyText(files[path]) {
			issues = append(issues, fmt.Sprintf("Empty or invalid content for %s file: %s", side, path))
		}
	}

	return issues
}

// RequiredSummary reports which required frontend files are absent and which
// required backend files are present with content.
type RequiredSummary struct {
	FrontendRequiredMissing []string `json:"frontend_required_missing"`
	BackendRequiredPresent  []string `json:"backend_required_present"`
}

// Required computes the consistency summary for p.
func (v *Validator) Required(p *project.Payload) RequiredSummary {
	s := RequiredSummary{
		FrontendRequiredMissing: make([]string, 0),
		BackendRequiredPresent:  make([]string, 0),
	}
	for _, req := range v.rules.RequiredFrontend {
		if _, ok := p.Frontend[req]; !ok {
			s.FrontendRequiredMissing = append(s.FrontendRequiredMissing, req)
		}
	}
	for _, req := range v.rules.RequiredBackend {
		if project.IsNonEmptyText(p.Backend[req]) {
			s.BackendRequiredPresent = append(s.BackendRequiredPresent, req)
		}
	}

	return s
}
