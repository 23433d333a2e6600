package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/cv-renderer/internal/build"
	"github.com/jonathan/cv-renderer/internal/document"
	"github.com/jonathan/cv-renderer/internal/rendering"
	"github.com/jonathan/cv-renderer/internal/workspace"
)

// HTTPStatus maps pipeline errors to HTTP status codes: malformed input
// and bad visibility tags are the caller's fault (400), a missing
// workspace is 404, everything else is a pipeline failure (500).
func HTTPStatus(err error) int {
	var dataErr *document.DataError
	var filterErr *document.FilterError
	var notFound *workspace.ErrNotFound
	var templateErr *rendering.TemplateError
	var renderErr *rendering.RenderError
	var buildErr *build.BuildError

	switch {
	case errors.As(err, &dataErr), errors.As(err, &filterErr):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &templateErr), errors.As(err, &renderErr), errors.As(err, &buildErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
