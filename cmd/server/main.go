package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/gg"
	"github.com/gorilla/mux"

	"github.com/eyedraw/eyedraw/backend-go/internal/asset"
	"github.com/eyedraw/eyedraw/backend-go/internal/auth"
	"github.com/eyedraw/eyedraw/backend-go/internal/config"
	"github.com/eyedraw/eyedraw/backend-go/internal/export"
	mw "github.com/eyedraw/eyedraw/backend-go/internal/middleware"
	"github.com/eyedraw/eyedraw/backend-go/internal/scene"
	"github.com/eyedraw/eyedraw/backend-go/internal/session"
	"github.com/eyedraw/eyedraw/backend-go/internal/shapes"
	"github.com/eyedraw/eyedraw/backend-go/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	gg.SetLogger(logger.With("component", "gg"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	classes := shapes.NewRegistry()
	docs := scene.NewDocuments(st)
	hub := session.NewHub(classes, docs,
		session.WithTemplateDir(cfg.TemplateDir),
		session.WithReadyTimeout(cfg.ReadyTimeout),
		session.WithLogger(logger),
	)
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.TemplateDir)
	sceneService := scene.NewService(st, hub, classes, docs, assetHandler, cfg.CanvasWidth, cfg.CanvasHeight)
	sceneHandler := scene.NewHandler(sceneService)
	exportHandler := export.NewHandler(cfg.ExportDir, sceneService, scene.HandleServiceError)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","drawings":%d}`, len(hub.Drawings().Names()))
	}).Methods("GET")

	// Stored files are addressed by unguessable IDs
	r.PathPrefix("/templates/").Handler(assetHandler.Serve()).Methods("GET")
	r.PathPrefix("/exports/").Handler(exportHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/templates", assetHandler.Upload).Methods("POST")
	api.HandleFunc("/templates/{templateId}", assetHandler.DeleteHandler(func(r *http.Request) string {
		return mux.Vars(r)["templateId"]
	})).Methods("DELETE")
	api.HandleFunc("/drawings/{drawingId}/exports", exportHandler.Export).Methods("POST")
	sceneHandler.Routes(api)

	// Preflight for every route; CORS answers it
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// WebSocket endpoint
	r.HandleFunc("/ws/drawings/{drawingId}", hub.WebSocketHandler(authService, sceneService, cfg.OriginHosts()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty drawings
		slog.Info("saving all drawings...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "classes", len(classes.Names()))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore connects to Postgres when DATABASE_URL is set and falls back to an in-memory
// store for local development.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewMemory(), func() {}, nil
	}

	pg, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return pg, pg.Close, nil
}
