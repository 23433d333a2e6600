// Package build writes rendered LaTeX source to a scratch directory and
// compiles it to PDF with pdflatex, best effort.
package build

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// SourceExt is the extension of the typesetter source file.
	SourceExt = ".tex"

	// CompileTimeout bounds a single pdflatex invocation.
	CompileTimeout = 60 * time.Second
)

// byproductExts are the auxiliary files pdflatex leaves next to the PDF.
// They are removed after every attempt.
var byproductExts = []string{".aux", ".log", ".out"}

// Result reports the outcome of a build attempt. Produced is false when
// pdflatex is missing from PATH or exited without emitting a PDF; that is
// a reportable condition, not an error.
type Result struct {
	PDFPath  string
	Produced bool
}

// BuildError represents a failure writing the source file to the scratch
// directory. Compiler problems never surface here.
type BuildError struct {
	Message string
	Cause   error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("build error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("build error: %s", e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Run writes rendered to scratchDir/baseName.tex and invokes pdflatex with
// the scratch directory as working directory. The compiler being absent or
// exiting non-zero is downgraded to Produced=false: the source file is
// still valid and useful without a compiled artifact. Byproducts are
// removed unconditionally before returning.
func Run(ctx context.Context, rendered, scratchDir, baseName string) (Result, error) {
	sourceName := baseName + SourceExt
	sourcePath := filepath.Join(scratchDir, sourceName)
	if err := os.WriteFile(sourcePath, []byte(rendered), 0644); err != nil {
		return Result{}, &BuildError{
			Message: fmt.Sprintf("failed to write LaTeX source: %s", sourcePath),
			Cause:   err,
		}
	}
	defer removeByproducts(scratchDir, baseName)

	if _, err := exec.LookPath("pdflatex"); err != nil {
		log.Printf("pdflatex not found in PATH, skipping PDF generation for %s", sourceName)
		return Result{Produced: false}, nil
	}

	compileCtx, cancel := context.WithTimeout(ctx, CompileTimeout)
	defer cancel()

	// -interaction=nonstopmode prevents interactive prompts on errors.
	cmd := exec.CommandContext(compileCtx, "pdflatex", "-interaction=nonstopmode", sourceName)
	cmd.Dir = scratchDir
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		log.Printf("pdflatex failed for %s: %v", sourceName, err)
	}

	pdfPath := filepath.Join(scratchDir, baseName+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return Result{Produced: false}, nil
	}
	return Result{PDFPath: pdfPath, Produced: true}, nil
}

// removeByproducts deletes auxiliary compiler output. Missing files are
// not an error.
func removeByproducts(scratchDir, baseName string) {
	for _, ext := range byproductExts {
		_ = os.Remove(filepath.Join(scratchDir, baseName+ext))
	}
}
