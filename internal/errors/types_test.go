package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *Error
		code    string
		status  int
		message string
	}{
		{"validation", NewValidationFailed(""), CodeValidationFailed, http.StatusUnprocessableEntity, "Validation failed"},
		{"bad request", NewBadRequest(""), CodeBadRequest, http.StatusBadRequest, "Bad request"},
		{"not found", NewNotFound(""), CodeNotFound, http.StatusNotFound, "Resource not found"},
		{"zip", NewZipError(""), CodeZipError, http.StatusInternalServerError, "Zip error"},
		{"input invalid", NewPreviewInputInvalid("zip-error"), CodePreviewInputInvalid, http.StatusBadRequest, "zip-error"},
		{"preview not found", NewPreviewNotFound(""), CodePreviewNotFound, http.StatusNotFound, "Project not found during preview"},
		{"missing fields", NewPreviewMissingFields("index.html required"), CodePreviewMissingFields, http.StatusUnprocessableEntity, "index.html required"},
		{"transform", NewPreviewTransformFailed("transform-failed"), CodePreviewTransformFailed, http.StatusBadGateway, "transform-failed"},
		{"unexpected", NewPreviewUnexpected(""), CodePreviewUnexpected, http.StatusInternalServerError, "Unexpected preview error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.NotNil(t, tt.err.Details)
		})
	}
}

func TestErrorString(t *testing.T) {
	err := NewPreviewTransformFailed("transform-failed").WithCause(errors.New("exit status 1"))

	assert.Equal(t, "[PREVIEW_TRANSFORM_FAILED] transform-failed: exit status 1", err.Error())
}

func TestIsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewPreviewInputInvalid("path-traversal"))

	assert.True(t, errors.Is(err, NewPreviewInputInvalid("")))
	assert.False(t, errors.Is(err, NewPreviewMissingFields("")))
}

func TestIsPreviewError(t *testing.T) {
	assert.True(t, IsPreviewError(NewPreviewUnexpected("")))
	assert.True(t, IsPreviewError(fmt.Errorf("ctx: %w", NewPreviewMissingFields(""))))
	assert.False(t, IsPreviewError(NewValidationFailed("")))
	assert.False(t, IsPreviewError(errors.New("plain")))
}

func TestStatusAndCodeOf(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, StatusOf(NewPreviewTransformFailed("")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
	assert.Equal(t, CodePreviewNotFound, CodeOf(NewPreviewNotFound("")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestToResponse(t *testing.T) {
	t.Run("typed error keeps details", func(t *testing.T) {
		err := NewPreviewTransformFailed("transform-failed").WithDetail("log", "boom")

		resp := ToResponse(err)
		assert.Equal(t, CodePreviewTransformFailed, resp.ErrorCode)
		assert.Equal(t, "transform-failed", resp.Message)
		assert.Equal(t, "boom", resp.Details["log"])
	})

	t.Run("untyped error hides its text", func(t *testing.T) {
		resp := ToResponse(errors.New("secret internal state"))
		assert.Equal(t, CodeInternal, resp.ErrorCode)
		assert.NotContains(t, resp.Message, "secret")
		require.NotNil(t, resp.Details)
		assert.Empty(t, resp.Details)
	})
}

func TestWithDetails(t *testing.T) {
	err := NewPreviewUnexpected("").WithDetails(map[string]interface{}{"project_id": "p1"})

	assert.Equal(t, "p1", err.Details["project_id"])
}
