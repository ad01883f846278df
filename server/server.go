package server

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/acme/autocert"

	"github.com/serisow/docanalyzer/handlers"
	"github.com/serisow/docanalyzer/plugin_registry"
	"github.com/serisow/docanalyzer/uploads"
)

type Config struct {
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	// WriteTimeout covers the whole analysis, including the model call.
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.HTTPPort == "" {
		c.HTTPPort = "8000"
	}
	if c.HTTPSPort == "" {
		c.HTTPSPort = "443"
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = time.Minute
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	return c
}

type RouteDeps struct {
	Processor   handlers.DocumentProcessor
	Registry    *plugin_registry.PluginRegistry
	Uploads     *uploads.Store
	MaxUploadMB int
	Backend     string
	Logger      *slog.Logger
}

func SetupRoutes(deps RouteDeps) *mux.Router {
	r := mux.NewRouter()

	analyzeHandler := handlers.NewAnalyzeHandler(deps.Processor, deps.Registry, deps.Uploads, deps.MaxUploadMB, deps.Logger)
	r.Handle("/analyze", analyzeHandler).Methods("POST")

	r.Handle("/healthz", &handlers.HealthHandler{Backend: deps.Backend}).Methods("GET")
	r.HandleFunc("/openapi.json", handlers.ServeOpenAPI).Methods("GET")

	return r
}

// ServeProduction serves TLS with certificates from Let's Encrypt for cfg.Domains.
func ServeProduction(h http.Handler, cfg Config, logger *slog.Logger) error {
	cfg = cfg.withDefaults()

	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domains...),
		Cache:      autocert.DirCache(cfg.CertCacheDir),
	}

	// Port 80 answers ACME "http-01" challenges and redirects everything else to HTTPS.
	go func() {
		srv := &http.Server{
			Addr:         ":80",
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("ACME challenge server stopped", slog.String("error", err.Error()))
		}
	}()

	tlsConfig := &tls.Config{
		GetCertificate:   autocertManager.GetCertificate,
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
		MinVersion:       tls.VersionTLS12,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPSPort,
		Handler:      h,
		TLSConfig:    tlsConfig,
		IdleTimeout:  cfg.IdleTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Serving HTTPS", slog.String("addr", srv.Addr), slog.Any("domains", cfg.Domains))
	return srv.ListenAndServeTLS("", "")
}

func NewDevelopmentServer(h http.Handler, cfg Config) *http.Server {
	cfg = cfg.withDefaults()
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h,
		IdleTimeout:  cfg.IdleTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ServeDevelopment serves plain HTTP.
func ServeDevelopment(s *http.Server, logger *slog.Logger) error {
	logger.Info("Serving HTTP", slog.String("addr", s.Addr))
	return s.ListenAndServe()
}
