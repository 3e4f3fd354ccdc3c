package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/origolabs/origo/internal/errors"
	"github.com/origolabs/origo/internal/preview"
	"github.com/origolabs/origo/internal/project"
	"github.com/origolabs/origo/internal/quality"
	"github.com/origolabs/origo/internal/validation"
	"github.com/origolabs/origo/internal/version"
)

// maxMemory is the part of a multipart upload kept in memory.
const maxMemory = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.StatusOf(err), errors.ToResponse(err))
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		e := errors.NewBadRequest("request body too large").WithDetail("limit", tooLarge.Limit)
		e.Status = http.StatusRequestEntityTooLarge
		return e
	}

	return errors.NewBadRequest("invalid request body").WithCause(err)
}

// decodeBody reads the request body as a generic JSON value.
func decodeBody(r *http.Request) (interface{}, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, bodyError(err)
	}
	v, err := project.Decode(data)
	if err != nil {
		return nil, errors.NewBadRequest("request body is not valid JSON").WithDetail("error", err.Error())
	}

	return v, nil
}

// payloadOf interprets a decoded body; non-objects become an empty payload.
func payloadOf(v interface{}) *project.Payload {
	if p, ok := project.FromValue(v); ok {
		return p
	}

	return &project.Payload{}
}

type validateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result := s.svc.Validate(raw)
	writeJSON(w, http.StatusOK, validateResponse{Valid: result.OK, Errors: result.Issues})
}

type consistencyResponse struct {
	OK       bool                       `json:"ok"`
	Errors   []string                   `json:"errors"`
	Required validation.RequiredSummary `json:"required"`
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result := s.svc.Validate(raw)
	writeJSON(w, http.StatusOK, consistencyResponse{
		OK:       result.OK,
		Errors:   result.Issues,
		Required: s.svc.Validator.Required(payloadOf(raw)),
	})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]quality.SizeReport{"report": quality.Sizes(payloadOf(raw))})
}

// handleQuality runs one named check on {"data": payload}. A missing or
// null data field is checked as an empty payload.
func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.svc.Quality.Has(name) {
		writeError(w, errors.NewNotFound(fmt.Sprintf("unknown quality check %q", name)).
			WithDetail("available", s.svc.Quality.Names()))
		return
	}

	raw, err := decodeBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	body, ok := raw.(map[string]interface{})
	if !ok {
		writeError(w, errors.NewBadRequest("request body must be an object"))
		return
	}

	var p *project.Payload
	switch data := body["data"].(type) {
	case nil:
		p = &project.Payload{}
	case map[string]interface{}:
		p = payloadOf(data)
	default:
		writeError(w, errors.NewBadRequest("data must be an object"))
		return
	}

	report, _ := s.svc.RunCheck(name, p)
	writeJSON(w, http.StatusOK, report)
}

// readUpload returns the bytes of the multipart file field.
func readUpload(r *http.Request, field string) ([]byte, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		if stderrors.Is(err, http.ErrNotMultipart) {
			return nil, errors.NewBadRequest("multipart form required").WithDetail("field", field)
		}
		return nil, bodyError(err)
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(field)
	if err != nil {
		if stderrors.Is(err, http.ErrMissingFile) {
			return nil, errors.NewBadRequest(fmt.Sprintf("missing file field %q", field)).WithDetail("field", field)
		}
		return nil, bodyError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, bodyError(err)
	}

	return data, nil
}

func (s *Server) handleValidateZip(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.svc.Audit(r.Context(), data))
}

type previewResponse struct {
	ProjectID   string `json:"project_id"`
	PreviewPath string `json:"preview_path"`
	HTML        string `json:"html"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")

	data, err := readUpload(r, "zip")
	if err != nil {
		if e, ok := errors.As(err); ok && e.Status == http.StatusBadRequest {
			err = errors.NewPreviewInputInvalid(e.Message).WithDetail("project_id", projectID)
		}
		writeError(w, err)
		return
	}

	html, err := s.svc.Preview(r.Context(), projectID, data)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		ProjectID:   projectID,
		PreviewPath: preview.Key(projectID),
		HTML:        html,
	})
}

// handleGetPreview serves a stored preview under the same policy that is
// embedded in the document.
func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	html, err := s.svc.LoadPreview(r.Context(), r.PathValue("project_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", s.svc.Pipeline.CSP().String())
	w.Header().Set("X-Frame-Options", "SAMEORIGIN")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.Short(),
		"checks": map[string]interface{}{
			"storage":   map[string]interface{}{"status": "healthy", "backend": s.svc.Config.Storage.Backend},
			"quality":   map[string]interface{}{"status": "healthy", "checks": len(s.svc.Quality.Names())},
			"websocket": map[string]interface{}{"status": "healthy", "clients": s.hub.Clients()},
		},
	})
}
