package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jonathan/cv-renderer/internal/build"
	"github.com/jonathan/cv-renderer/internal/document"
	"golang.org/x/sync/errgroup"
)

// RenderRequest represents the request body for /render
type RenderRequest struct {
	YAMLContent string `json:"yaml_content" validate:"required"`
}

// RenderJSONRequest represents the request body for /render_json and
// /render_json_pdf
type RenderJSONRequest struct {
	Data json.RawMessage `json:"data" validate:"required"`
}

// RenderResponse represents the response for /render and /render_json
type RenderResponse struct {
	RequestID string `json:"request_id"`
	CVPDF     string `json:"cv_pdf"`
	ResumePDF string `json:"resume_pdf"`
}

// outputBase returns the artifact base name for a target, e.g. cv_output.
func outputBase(target document.Target) string {
	return string(target) + "_output"
}

// handleRender renders both targets from a YAML document and returns
// download links (two-step mode).
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "yaml_content is required")
		return
	}
	s.renderBoth(w, r, req.YAMLContent)
}

// handleRenderJSON accepts structured JSON, validates its shape,
// normalizes it to YAML text, and reuses the /render pipeline.
func (s *Server) handleRenderJSON(w http.ResponseWriter, r *http.Request) {
	yamlText, ok := s.normalizedJSONBody(w, r)
	if !ok {
		return
	}
	s.renderBoth(w, r, yamlText)
}

// renderBoth parses the document once, then composes and builds both
// targets into a fresh scratch directory.
func (s *Server) renderBoth(w http.ResponseWriter, r *http.Request, yamlText string) {
	doc, err := document.ParseYAML(yamlText)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	requestID, scratchDir, err := s.workspaces.NewScratch()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to allocate workspace: "+err.Error())
		return
	}

	targets := []document.Target{document.TargetCV, document.TargetResume}
	results := make([]build.Result, len(targets))

	g, ctx := errgroup.WithContext(r.Context())
	for i, target := range targets {
		g.Go(func() error {
			source, err := s.engine.Compose(doc, target)
			if err != nil {
				return err
			}
			result, err := build.Run(ctx, source, scratchDir, outputBase(target))
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	// A failed render returns no links, so the workspace would only sit
	// around until the sweeper reaped it.
	if err := g.Wait(); err != nil {
		s.workspaces.Remove(scratchDir)
		s.errorResponse(w, HTTPStatus(err), "Rendering failed: "+err.Error())
		return
	}

	produced := false
	for _, result := range results {
		produced = produced || result.Produced
	}
	if !produced {
		s.workspaces.Remove(scratchDir)
		s.errorResponse(w, http.StatusInternalServerError, "No PDFs generated (is pdflatex installed?)")
		return
	}

	s.jsonResponse(w, http.StatusOK, RenderResponse{
		RequestID: requestID,
		CVPDF:     fmt.Sprintf("/download/%s/cv", requestID),
		ResumePDF: fmt.Sprintf("/download/%s/resume", requestID),
	})
}

// handleRenderJSONPDF streams a single compiled artifact and removes the
// scratch directory before responding (streaming mode).
func (s *Server) handleRenderJSONPDF(w http.ResponseWriter, r *http.Request) {
	target, err := document.ParseTarget(r.URL.Query().Get("doc_type"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	yamlText, ok := s.normalizedJSONBody(w, r)
	if !ok {
		return
	}
	doc, err := document.ParseYAML(yamlText)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	source, err := s.engine.Compose(doc, target)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Rendering failed: "+err.Error())
		return
	}

	_, scratchDir, err := s.workspaces.NewScratch()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to allocate workspace: "+err.Error())
		return
	}

	result, err := build.Run(r.Context(), source, scratchDir, outputBase(target))
	if err != nil {
		s.workspaces.Remove(scratchDir)
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if !result.Produced {
		s.workspaces.Remove(scratchDir)
		s.errorResponse(w, http.StatusInternalServerError, "No PDF generated (is pdflatex installed?)")
		return
	}

	// Read the artifact into memory, then tear the workspace down before
	// answering. Cleanup runs even when the read failed.
	pdfBytes, readErr := os.ReadFile(result.PDFPath)
	s.workspaces.Remove(scratchDir)
	if readErr != nil {
		log.Printf("failed to read generated PDF %s: %v", result.PDFPath, readErr)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to read generated PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outputBase(target)+".pdf"))
	if _, err := w.Write(pdfBytes); err != nil {
		log.Printf("failed to stream PDF: %v", err)
	}
}

// handleDownload serves an artifact from a two-step render by request id
// and document type.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	target, err := document.ParseTarget(r.PathValue("doc_type"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID := r.PathValue("request_id")
	scratchDir, err := s.workspaces.Dir(requestID)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "Invalid request ID")
		return
	}

	pdfPath := filepath.Join(scratchDir, outputBase(target)+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		s.errorResponse(w, http.StatusNotFound, "PDF not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outputBase(target)+".pdf"))
	http.ServeFile(w, r, pdfPath)
}

// normalizedJSONBody decodes a RenderJSONRequest, schema-checks the data
// payload, and converts it to YAML text. On failure it writes the error
// response and reports false.
func (s *Server) normalizedJSONBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req RenderJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return "", false
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "data is required")
		return "", false
	}
	if err := document.ValidateJSONDocument(string(req.Data)); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return "", false
	}
	yamlText, err := document.NormalizeJSON(string(req.Data))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to convert JSON to YAML: "+err.Error())
		return "", false
	}
	return yamlText, true
}
