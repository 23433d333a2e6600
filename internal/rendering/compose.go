package rendering

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jonathan/cv-renderer/internal/document"
)

// Template delimiters stay clear of LaTeX's reserved characters
// ({ } % $ # \) so template markup never collides with document markup.
const (
	delimLeft  = "<<"
	delimRight = ">>"
)

// templateFiles maps each target to its template filename.
var templateFiles = map[document.Target]string{
	document.TargetCV:     "cv.tex.tmpl",
	document.TargetResume: "resume.tex.tmpl",
}

// Engine holds the parsed per-target templates. It is constructed once at
// startup and immutable afterwards, so it is safe for concurrent use.
type Engine struct {
	templates map[document.Target]*template.Template
}

// NewEngine parses every target template under templatesDir.
func NewEngine(templatesDir string) (*Engine, error) {
	e := &Engine{templates: make(map[document.Target]*template.Template, len(templateFiles))}
	for target, name := range templateFiles {
		tmpl, err := parseTemplate(filepath.Join(templatesDir, name))
		if err != nil {
			return nil, err
		}
		e.templates[target] = tmpl
	}
	return e, nil
}

// parseTemplate reads and parses a LaTeX template file
func parseTemplate(templatePath string) (*template.Template, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &TemplateError{
				Message: fmt.Sprintf("template file not found: %s", templatePath),
				Cause:   err,
			}
		}
		return nil, &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", templatePath),
			Cause:   err,
		}
	}

	// missingkey=error turns a reference to a filtered-out field into a
	// RenderError instead of silently typesetting "<no value>".
	tmpl, err := template.New(filepath.Base(templatePath)).
		Delims(delimLeft, delimRight).
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"escape": EscapeLaTeX,
		}).
		Parse(string(content))
	if err != nil {
		return nil, &TemplateError{
			Message: fmt.Sprintf("failed to parse template: %s", templatePath),
			Cause:   err,
		}
	}

	return tmpl, nil
}

// Compose produces LaTeX source for one target: the document is filtered
// for the target's visibility tags, every string scalar is escaped, and
// the result is bound to the target's template. Identical (document,
// target) pairs always produce identical output.
func (e *Engine) Compose(doc document.Node, target document.Target) (string, error) {
	tmpl, ok := e.templates[target]
	if !ok {
		return "", &TemplateError{Message: fmt.Sprintf("no template registered for target %q", target)}
	}

	filtered, err := document.Apply(doc, target)
	if err != nil {
		return "", err
	}
	escaped := EscapeTree(filtered)

	var result strings.Builder
	if err := tmpl.Execute(&result, document.Bindings(escaped)); err != nil {
		return "", &RenderError{
			Message: fmt.Sprintf("failed to execute %s template", target),
			Cause:   err,
		}
	}
	return result.String(), nil
}
