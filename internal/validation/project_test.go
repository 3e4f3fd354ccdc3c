package validation

import (
	"testing"

	"github.com/origolabs/origo/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"frontend_files": map[string]interface{}{
			"src/App.jsx":       "export default function App() { return null }",
			"src/index.js":      "import App from './App'",
			"public/index.html": "<div id=\"root\"></div>",
		},
		"backend_files": map[string]interface{}{
			"app/main.py":              "from fastapi import FastAPI",
			"app/routes/__init__.py":   "# routes",
			"app/routes/api.py":        "router = None",
			"app/schemas/__init__.py":  "# schemas",
			"app/models/__init__.py":   "# models",
			"app/services/__init__.py": "# services",
		},
		"README": "# Generated project",
	}
}

func TestValidateProjectOutputValid(t *testing.T) {
	result := ValidateProjectOutput(validPayload())

	assert.True(t, result.OK)
	assert.Empty(t, result.Issues)
	assert.NotNil(t, result.Issues)
}

func TestValidateProjectOutputNotAMapping(t *testing.T) {
	for _, raw := range []interface{}{nil, "text", []interface{}{1}, 42} {
		result := ValidateProjectOutput(raw)
		assert.False(t, result.OK)
		assert.Equal(t, []string{"Output is not a dict"}, result.Issues)
	}
}

func TestValidateProjectOutputMissingSections(t *testing.T) {
	result := ValidateProjectOutput(map[string]interface{}{})

	assert.False(t, result.OK)
	assert.Equal(t, []string{
		"frontend_files must be a non-empty dict",
		"backend_files must be a non-empty dict",
		"README must be a non-empty string",
	}, result.Issues)
}

func TestValidateProjectOutputEmptyMappings(t *testing.T) {
	raw := map[string]interface{}{
		"frontend_files": map[string]interface{}{},
		"backend_files":  map[string]interface{}{},
		"README":         "   ",
	}

	result := ValidateProjectOutput(raw)

	assert.False(t, result.OK)
	assert.Contains(t, result.Issues, "frontend_files must be a non-empty dict")
	assert.Contains(t, result.Issues, "backend_files must be a non-empty dict")
	assert.Contains(t, result.Issues, "README must be a non-empty string")
	assert.Contains(t, result.Issues, "Missing required frontend file: src/App.jsx")
	assert.Contains(t, result.Issues, "Missing required backend file: app/main.py")
}

func TestValidateProjectOutputEntryRules(t *testing.T) {
	raw := validPayload()
	frontend := raw["frontend_files"].(map[string]interface{})
	frontend["../evil.js"] = "x"
	frontend["src/components/"] = "x"
	frontend["src/empty.js"] = "  "
	backend := raw["backend_files"].(map[string]interface{})
	backend["app/routes/api.py"] = 7
	backend["/abs.py"] = "print(1)"

	result := ValidateProjectOutput(raw)

	require.False(t, result.OK)
	assert.Equal(t, []string{
		"Invalid frontend filename: ../evil.js",
		"Invalid frontend filename: src/components/",
		"Empty or invalid content for frontend file: src/empty.js",
		"Missing required backend file: app/routes/api.py",
		"Invalid backend filename: /abs.py",
		"Empty or invalid content for backend file: app/routes/api.py",
	}, result.Issues)
}

func TestValidateProjectOutputIdempotent(t *testing.T) {
	raw := validPayload()
	delete(raw["frontend_files"].(map[string]interface{}), "src/index.js")

	first := ValidateProjectOutput(raw)
	second := ValidateProjectOutput(raw)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"Missing required frontend file: src/index.js"}, first.Issues)
}

func TestValidatorCustomRules(t *testing.T) {
	v := NewValidator(Rules{RequiredFrontend: []string{"index.html"}})
	p := project.New(map[string]string{"index.html": "<p>x</p>"}, map[string]string{"main.py": "x"}, "r")

	result := v.ValidatePayload(p)

	assert.True(t, result.OK, result.Issues)
}

func TestRequiredSummary(t *testing.T) {
	p := project.New(
		map[string]string{"src/App.jsx": "x"},
		map[string]string{"app/main.py": "x", "app/routes/api.py": ""},
		"r",
	)

	s := NewValidator(DefaultRules()).Required(p)

	assert.Equal(t, []string{"src/index.js", "public/index.html"}, s.FrontendRequiredMissing)
	assert.Equal(t, []string{"app/main.py"}, s.BackendRequiredPresent)
}
