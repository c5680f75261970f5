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

	"github.com/joho/godotenv"

	"qms-exporter/internal/composer"
	"qms-exporter/internal/config"
	"qms-exporter/internal/driver"
	"qms-exporter/internal/email"
	"qms-exporter/internal/exporter"
	"qms-exporter/internal/layout"
	"qms-exporter/internal/reference"
	"qms-exporter/internal/server/api"
	"qms-exporter/internal/server/hub"
	"qms-exporter/internal/server/middleware"
	"qms-exporter/internal/server/store"
	"qms-exporter/internal/storage"
	"qms-exporter/internal/worker"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("Starting QMS exporter", "env", cfg.AppEnv)

	if cfg.APISecret == "" {
		slog.Warn("API_SECRET not set, request signing disabled")
	}

	// 1. Reference data and rendering
	catalog, err := reference.LoadFile(cfg.CatalogPath)
	if err != nil {
		slog.Error("Failed to load reference catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	engine := layout.New()
	renderer := exporter.NewRenderer(composer.New(catalog, engine.Geometry()), engine)

	// 2. Storage and email
	files, err := storage.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	sender, err := email.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize email", "error", err)
		os.Exit(1)
	}

	// 3. Worker pool
	pool := worker.NewPool(worker.Options{
		Workers:              cfg.WorkerCount,
		MaxRenderConcurrency: cfg.MaxRenderConcurrency,
		AttachDocuments:      cfg.AttachDocuments,
		TokenSecret:          cfg.TokenSecret,
		TokenTTL:             cfg.TokenTTL,
		PublicURL:            cfg.PublicURL,
		Caption:              cfg.Caption(),
	}, renderer, files, sender)

	// 4. Report source (optional)
	if cfg.DBDSN != "" {
		source, err := driver.Open(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			slog.Error("Failed to open report source", "driver", cfg.DBDriver, "error", err)
			os.Exit(1)
		}
		defer source.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := source.Ping(ctx); err != nil {
			slog.Warn("Report source unreachable, source_id exports will fail", "driver", source.Name(), "error", err)
		}
		cancel()
		pool.SetSource(source)
	}

	// 5. Hub and handlers
	h := hub.NewHub()
	pool.SetNotifier(h)
	handler := api.NewHandler(pool, files, h, cfg.DefaultTimeout, cfg.TokenSecret, cfg.AllowedOrigins)

	// 6. Export history and API keys (optional)
	var keys middleware.KeyVerifier
	if cfg.StoreDSN != "" {
		st, err := store.NewStore(cfg.StoreDSN)
		if err != nil {
			slog.Error("Failed to initialize store", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		if err := st.InitSchema(context.Background()); err != nil {
			slog.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Store connected and schema initialized")
		pool.SetRecorder(st)
		handler.History = st
		handler.Keys = st
		keys = st
	}

	pool.Start()

	// 7. Routes and middleware
	mux := http.NewServeMux()
	handler.Register(mux, middleware.Signature(cfg.APISecret, keys))
	finalHandler := middleware.Logging(middleware.CORS(cfg.AllowedOrigins, cfg.AppEnv)(mux))

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           finalHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	pool.Stop()
}
