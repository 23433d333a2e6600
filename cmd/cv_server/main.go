// Package main provides the entry point for the CV renderer HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cv_server",
	Short: "CV/resume LaTeX render service",
	Long:  "cv_server renders a structured personal-data document (YAML/JSON) into CV and resume PDFs via LaTeX templates, either as an HTTP service or as a one-shot local render.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
