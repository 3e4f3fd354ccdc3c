// Package project models the generated-project payload exchanged between the
// generation step and the validation, quality and packaging components.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Wire keys of a generated-project payload.
const (
	KeyFrontend = "frontend_files"
	KeyBackend  = "backend_files"
	KeyREADME   = "README"
)

// Files maps relative paths to file contents as decoded from untrusted JSON.
// Values that are not strings are kept so validators can report them.
type Files map[string]interface{}

// Payload is one generated project.
//
// Frontend and Backend are nil when the section is absent or is not a JSON
// object, and non-nil (possibly empty) otherwise.
type Payload struct {
	Frontend Files
	Backend  Files
	README   interface{}
	// Keys lists the top-level keys of the decoded object.
	Keys []string
}

// New builds a payload from typed maps.
func New(frontend, backend map[string]string, readme string) *Payload {
	return &Payload{
		Frontend: FromStrings(frontend),
		Backend:  FromStrings(backend),
		README:   readme,
		Keys:     []string{KeyFrontend, KeyBackend, KeyREADME},
	}
}

// FromStrings converts a typed file map. A nil map stays nil.
func FromStrings(m map[string]string) Files {
	if m == nil {
		return nil
	}
	files := make(Files, len(m))
	for k, v := range m {
		files[k] = v
	}

	return files
}

// FromValue interprets a decoded JSON value. ok is false when v is not an
// object.
func FromValue(v interface{}) (p *Payload, ok bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}

	p = &Payload{README: m[KeyREADME]}
	if f, isMap := m[KeyFrontend].(map[string]interface{}); isMap {
		p.Frontend = Files(f)
	}
	if b, isMap := m[KeyBackend].(map[string]interface{}); isMap {
		p.Backend = Files(b)
	}
	for k := range m {
		p.Keys = append(p.Keys, k)
	}
	sort.Strings(p.Keys)

	return p, true
}

// Decode parses raw JSON into a generic value suitable for FromValue and the
// validator. Numbers are kept as json.Number.
func Decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	return v, nil
}

// Parse decodes raw JSON and requires a top-level object.
func Parse(data []byte) (*Payload, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	p, ok := FromValue(v)
	if !ok {
		return nil, fmt.Errorf("decode payload: top-level value is not an object")
	}

	return p, nil
}

// Empty reports whether the section has no entries. A nil section is empty.
func (f Files) Empty() bool {
	return len(f) == 0
}

// Paths returns the keys in sorted order.
func (f Files) Paths() []string {
	paths := make([]string, 0, len(f))
	for k := range f {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	return paths
}

// Text returns the string content stored at path.
func (f Files) Text(path string) (string, bool) {
	v, ok := f[path]
	if !ok {
		return "", false
	}
	s, ok := v.(string)

	return s, ok
}

// Sources returns every string content in sorted path order.
func (f Files) Sources() []string {
	var out []string
	for _, p := range f.Paths() {
		if s, ok := f.Text(p); ok {
			out = append(out, s)
		}
	}

	return out
}

// IsNonEmptyText reports whether v is a string with non-whitespace content.
func IsNonEmptyText(v interface{}) bool {
	s, ok := v.(string)

	return ok && strings.TrimSpace(s) != ""
}

// READMEText returns the README when it is a string.
func (p *Payload) READMEText() string {
	s, _ := p.README.(string)

	return s
}

// Sources returns every string file content, frontend first.
func (p *Payload) Sources() []string {
	return append(p.Frontend.Sources(), p.Backend.Sources()...)
}
