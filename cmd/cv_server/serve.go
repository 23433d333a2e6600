package main

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonathan/cv-renderer/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort        int
	serveTemplates   string
	serveScratchRoot string
	serveScratchTTL  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the render HTTP service",
	Long:  `Start an HTTP server exposing /render, /render_json, /render_json_pdf and /download endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveTemplates, "templates", "templates", "Directory holding cv.tex.tmpl and resume.tex.tmpl")
	serveCmd.Flags().StringVar(&serveScratchRoot, "scratch-root", filepath.Join(os.TempDir(), "cv-renderer"), "Root directory for per-request workspaces")
	serveCmd.Flags().DurationVar(&serveScratchTTL, "scratch-ttl", server.DefaultScratchTTL, "Retention for two-step workspaces before the sweeper reaps them")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Environment supplies defaults for flags the caller left alone; the
	// .env file has been loaded by then.
	if !cmd.Flags().Changed("port") {
		servePort = envInt("CV_RENDERER_PORT", servePort)
	}
	if !cmd.Flags().Changed("templates") {
		serveTemplates = envString("CV_RENDERER_TEMPLATES", serveTemplates)
	}
	if !cmd.Flags().Changed("scratch-root") {
		serveScratchRoot = envString("CV_RENDERER_SCRATCH_ROOT", serveScratchRoot)
	}
	if !cmd.Flags().Changed("scratch-ttl") {
		serveScratchTTL = envDuration("CV_RENDERER_SCRATCH_TTL", serveScratchTTL)
	}

	srv, err := server.New(server.Config{
		Port:         servePort,
		TemplatesDir: serveTemplates,
		ScratchRoot:  serveScratchRoot,
		ScratchTTL:   serveScratchTTL,
	})
	if err != nil {
		return err
	}
	return srv.Start()
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
