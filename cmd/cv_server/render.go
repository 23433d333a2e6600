package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/cv-renderer/internal/build"
	"github.com/jonathan/cv-renderer/internal/document"
	"github.com/jonathan/cv-renderer/internal/rendering"
	"github.com/spf13/cobra"
)

var (
	renderTarget    string
	renderTemplates string
	renderOut       string
	renderPublish   string
)

var renderCmd = &cobra.Command{
	Use:   "render <data.yaml>",
	Short: "Render a data file to LaTeX and PDF locally",
	Long: `Render a YAML data file for one target without going through the HTTP
service. The .tex source and, when pdflatex is available, the PDF are
written to the output directory. --publish additionally copies the PDF
into a destination directory under a timestamped name.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderTarget, "target", "cv", "Document type to render (cv or resume)")
	renderCmd.Flags().StringVar(&renderTemplates, "templates", "templates", "Directory holding cv.tex.tmpl and resume.tex.tmpl")
	renderCmd.Flags().StringVar(&renderOut, "out", ".", "Directory for the rendered .tex and .pdf")
	renderCmd.Flags().StringVar(&renderPublish, "publish", "", "Optional directory to copy the PDF into with a timestamped name")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	target, err := document.ParseTarget(renderTarget)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}
	doc, err := document.ParseYAML(string(data))
	if err != nil {
		return err
	}

	engine, err := rendering.NewEngine(renderTemplates)
	if err != nil {
		return err
	}
	source, err := engine.Compose(doc, target)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(renderOut, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	baseName := string(target) + "_output"
	result, err := build.Run(cmd.Context(), source, renderOut, baseName)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", filepath.Join(renderOut, baseName+build.SourceExt))
	if !result.Produced {
		fmt.Println("No PDF produced (is pdflatex installed?)")
		return nil
	}
	fmt.Printf("Wrote %s\n", result.PDFPath)

	if renderPublish != "" {
		published, err := publishPDF(result.PDFPath, renderPublish, target)
		if err != nil {
			return err
		}
		fmt.Printf("Copied %s -> %s\n", result.PDFPath, published)
	}
	return nil
}

// publishPDF copies a produced PDF into destDir under a
// YY_MM_<base>_<CV|Resume>.pdf name.
func publishPDF(pdfPath, destDir string, target document.Target) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create publish directory: %w", err)
	}

	kind := "Resume"
	if target == document.TargetCV {
		kind = "CV"
	}
	base := strings.TrimSuffix(filepath.Base(pdfPath), ".pdf")
	name := fmt.Sprintf("%s_%s_%s.pdf", time.Now().Format("06_01"), base, kind)

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	dest := filepath.Join(destDir, name)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("failed to publish PDF: %w", err)
	}
	return dest, nil
}
