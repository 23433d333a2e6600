package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a server around minimal templates and a fresh
// scratch root.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	templatesDir := t.TempDir()
	cv := "CV for <<.name>>\n<<range .sections>><<.title>>\n<<end>>"
	resume := "Resume for <<.name>>\n<<range .sections>><<.title>>\n<<end>>"
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, "cv.tex.tmpl"), []byte(cv), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, "resume.tex.tmpl"), []byte(resume), 0644))

	s, err := New(Config{
		Port:         8080,
		TemplatesDir: templatesDir,
		ScratchRoot:  t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		s.limiter.Stop()
		s.workspaces.Stop()
	})
	return s
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp["error"]
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleRender_MissingYAMLContent(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	s.handleRender(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w.Body.Bytes()), "yaml_content")
}

func TestHandleRender_InvalidBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(`not json`))
	w := httptest.NewRecorder()

	s.handleRender(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRender_MalformedYAML(t *testing.T) {
	s := newTestServer(t)
	body := `{"yaml_content": "{invalid"}`
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRender(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRender_MalformedShowOn(t *testing.T) {
	s := newTestServer(t)
	body := `{"yaml_content": "name: Jo\nsections:\n  - title: A\n    show_on: 42\n"}`
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRender(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w.Body.Bytes()), "show_on")
}

func TestHandleRender_CompilerAbsent(t *testing.T) {
	t.Setenv("PATH", "")
	s := newTestServer(t)
	body := `{"yaml_content": "name: Jo\nsections: []\n"}`
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRender(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, errorMessage(t, w.Body.Bytes()), "pdflatex")

	entries, err := os.ReadDir(s.workspaces.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "failed renders must not leave workspaces behind")
}

func TestHandleRender_ComposeFailureRemovesWorkspace(t *testing.T) {
	s := newTestServer(t)
	body := `{"yaml_content": "name: Jo\nsections:\n  - title: A\n    show_on: 42\n"}`
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRender(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	entries, err := os.ReadDir(s.workspaces.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "failed renders must not leave workspaces behind")
}

func TestHandleRender_TwoStepSuccess(t *testing.T) {
	binDir := t.TempDir()
	script := "#!/bin/sh\nbase=$(basename \"$2\" .tex)\ntouch \"$base.pdf\" \"$base.aux\" \"$base.log\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "pdflatex"), []byte(script), 0755))
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	s := newTestServer(t)
	body := `{"yaml_content": "name: Jo\nsections:\n  - title: Awards\n"}`
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRender(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/download/"+resp.RequestID+"/cv", resp.CVPDF)
	assert.Equal(t, "/download/"+resp.RequestID+"/resume", resp.ResumePDF)

	// Both artifacts exist, byproducts do not.
	scratchDir, err := s.workspaces.Dir(resp.RequestID)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(scratchDir, "cv_output.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(scratchDir, "resume_output.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(scratchDir, "cv_output.aux"))
	assert.True(t, os.IsNotExist(err))
}

func TestHandleDownload_UnknownRequestID(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/download/"+id+"/cv", nil)
	req.SetPathValue("request_id", id)
	req.SetPathValue("doc_type", "cv")
	w := httptest.NewRecorder()

	s.handleDownload(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDownload_InvalidDocType(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/download/"+id+"/pdf", nil)
	req.SetPathValue("request_id", id)
	req.SetPathValue("doc_type", "pdf")
	w := httptest.NewRecorder()

	s.handleDownload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDownload_MissingPDF(t *testing.T) {
	s := newTestServer(t)
	id, _, err := s.workspaces.NewScratch()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/download/"+id+"/cv", nil)
	req.SetPathValue("request_id", id)
	req.SetPathValue("doc_type", "cv")
	w := httptest.NewRecorder()

	s.handleDownload(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDownload_Success(t *testing.T) {
	s := newTestServer(t)
	id, dir, err := s.workspaces.NewScratch()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cv_output.pdf"), []byte("%PDF-1.5 fake"), 0644))

	req := httptest.NewRequest(http.MethodGet, "/download/"+id+"/cv", nil)
	req.SetPathValue("request_id", id)
	req.SetPathValue("doc_type", "cv")
	w := httptest.NewRecorder()

	s.handleDownload(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.5 fake", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cv_output.pdf")
}

func TestHandleRenderJSON_MissingData(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/render_json", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	s.handleRenderJSON(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRenderJSON_RootMustBeObject(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/render_json", strings.NewReader(`{"data": [1, 2]}`))
	w := httptest.NewRecorder()

	s.handleRenderJSON(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRenderJSONPDF_InvalidDocType(t *testing.T) {
	s := newTestServer(t)
	body := `{"data": {"name": "Jo", "sections": []}}`
	req := httptest.NewRequest(http.MethodPost, "/render_json_pdf?doc_type=flyer", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRenderJSONPDF(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRenderJSONPDF_StreamsAndCleansUp(t *testing.T) {
	binDir := t.TempDir()
	script := "#!/bin/sh\nbase=$(basename \"$2\" .tex)\nprintf 'pdfbytes' > \"$base.pdf\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "pdflatex"), []byte(script), 0755))
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	s := newTestServer(t)
	body := `{"data": {"name": "Jo", "sections": [{"title": "Awards"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/render_json_pdf?doc_type=resume", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRenderJSONPDF(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "pdfbytes", w.Body.String())

	// Streaming mode leaves nothing behind.
	entries, err := os.ReadDir(s.workspaces.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleRenderJSONPDF_CompilerAbsentCleansUp(t *testing.T) {
	t.Setenv("PATH", "")
	s := newTestServer(t)
	body := `{"data": {"name": "Jo", "sections": []}}`
	req := httptest.NewRequest(http.MethodPost, "/render_json_pdf?doc_type=cv", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRenderJSONPDF(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	entries, err := os.ReadDir(s.workspaces.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
