// Package main is the entry point for the rulegate server binary.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/pflag"

	"rulegate/internal/api"
	"rulegate/internal/app"
	"rulegate/internal/config"
	internaldb "rulegate/internal/db"
	"rulegate/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	pflag.StringVar(&configPath, "config", "", "path to YAML config file")
	pflag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, cfg.ReadMaxConns)
	if err != nil {
		return err
	}
	defer func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	}()
	if err := internaldb.RunMigrations(writeDB); err != nil {
		return err
	}

	application := app.New(app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})

	apiHandler := api.NewHandler(
		application.Services.Claim,
		application.Services.Rule,
		application.Services.Audit,
		application.Access,
		logger,
	)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	validator, err := buildValidator(cfg, logger)
	if err != nil {
		return err
	}
	r.Group(func(r chi.Router) {
		if validator != nil {
			r.Use(middleware.Authenticate(validator))
		}
		r.Mount("/", apiHandler.Routes())
	})

	if cfg.ReconcileCron != "" {
		if err := application.Reconciler.Start(cfg.ReconcileCron); err != nil {
			return err
		}
		defer application.Reconciler.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening",
			"addr", cfg.ListenAddr,
			"health", "http://"+curlHostForListenAddr(cfg.ListenAddr)+"/healthz")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// curlHostForListenAddr turns a listen address into something a curl hint
// can use: wildcard and empty hosts become localhost, malformed addresses
// pass through untouched.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

// buildValidator selects the token validator from config: OIDC when an
// issuer is configured, HS256 when a shared secret is, nil when neither. A
// nil validator leaves every request anonymous.
func buildValidator(cfg *config.Config, logger *slog.Logger) (middleware.TokenValidator, error) {
	switch {
	case cfg.Auth.OIDCEnabled():
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience)
	case cfg.Auth.JWTSecret != "":
		return middleware.NewHS256Validator(cfg.Auth.JWTSecret)
	default:
		logger.Warn("running without authentication; all requests are anonymous")
		return nil, nil
	}
}
