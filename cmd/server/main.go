// Emotion Classifier App server
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

	"github.com/ashureev/emotext/internal/api"
	"github.com/ashureev/emotext/internal/classifier"
	"github.com/ashureev/emotext/internal/config"
	"github.com/ashureev/emotext/internal/credentials"
	"github.com/ashureev/emotext/internal/feed"
	"github.com/ashureev/emotext/internal/middleware"
	"github.com/ashureev/emotext/internal/router"
	"github.com/ashureev/emotext/internal/store"
	"github.com/ashureev/emotext/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Load the classifier artifact. A failure here is fatal to the
	// prediction feature only: the Home view stays locked with a clear
	// message and everything else keeps working.
	var clf *classifier.Classifier
	clf, err = classifier.Load(cfg.ModelPath)
	if err != nil {
		slog.Warn("Classifier artifact failed to load, prediction disabled", "path", cfg.ModelPath, "error", err)
		clf = nil
	} else {
		slog.Info("Classifier loaded", "path", cfg.ModelPath, "classes", len(clf.Classes()))
	}

	// Initialize services.
	creds := credentials.New(repo, cfg.EmailDomain)
	hub := feed.NewHub()
	rtr := router.New(creds, repo, clf, cfg.AdminUsername, cfg.AdminPassword, hub)
	sessions := api.NewSessionManager()

	// Initialize handlers.
	handler := api.NewHandler(rtr, creds, repo, sessions)
	healthHandler := api.NewHealthHandler(repo, rtr.PredictionEnabled())
	feedHandler := feed.NewHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(api.SessionMiddleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	handler.RegisterRoutes(r)

	// WebSocket endpoint for the live Monitor feed.
	r.Get("/ws/monitor", feedHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout, the Monitor feed holds connections open
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
