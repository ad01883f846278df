package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/serisow/docanalyzer/server"
	"github.com/serisow/docanalyzer/uploads"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves POST /analyze, GET /healthz and GET /openapi.json.
With ENVIRONMENT=production the API is served over TLS with certificates
obtained for DOMAIN.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer app.Close()
	cfg := app.cfg

	store, err := uploads.NewStore(cfg.UploadDir, app.logger)
	if err != nil {
		return err
	}
	store.StartCleanup(cfg.UploadRetention, cfg.UploadSweepInterval)
	defer store.StopCleanup()

	r := server.SetupRoutes(server.RouteDeps{
		Processor:   app.assistant,
		Registry:    app.registry,
		Uploads:     store,
		MaxUploadMB: cfg.MaxUploadMB,
		Backend:     app.assistant.Backend(),
		Logger:      app.logger,
	})
	n := setupNegroni(r)

	srvCfg := server.Config{
		Domains:      cfg.Domains,
		CertCacheDir: cfg.CertCacheDir,
		HTTPPort:     cfg.HTTPPort,
		HTTPSPort:    cfg.HTTPSPort,
	}

	if cfg.Environment == "production" {
		return server.ServeProduction(n, srvCfg, app.logger)
	}

	srv := server.NewDevelopmentServer(n, srvCfg)
	errCh := make(chan error, 1)
	go func() { errCh <- server.ServeDevelopment(srv, app.logger) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		app.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	}
}
