package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/quizhub/internal/accounts"
	api "github.com/mind-engage/quizhub/internal/api/http"
	auth "github.com/mind-engage/quizhub/internal/auth/middleware"
	"github.com/mind-engage/quizhub/internal/config"
	"github.com/mind-engage/quizhub/internal/db"
	"github.com/mind-engage/quizhub/internal/generator"
	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/service"
	"github.com/mind-engage/quizhub/internal/storage"
	syncx "github.com/mind-engage/quizhub/internal/sync"
)

func main() {
	cfg := config.FromEnv()
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	events := syncx.NewEventRepo(dbh, string(cfg.Mode))
	store := quiz.NewSQLStore(dbh, events)
	users := accounts.NewSQLStore(dbh)

	// --- Blob store for archived imports ---
	var blobs storage.BlobStore
	switch cfg.BlobDriver {
	case "s3":
		blobs, err = storage.NewS3Store(storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		blobs, err = storage.NewFSStore(cfg.BlobBasePath)
	}
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- AI generation (optional) ---
	opts := service.Options{Blobs: blobs, Events: events, Logger: logger, ImportMaxBytes: cfg.ImportMaxBytes}
	gen, err := generator.NewOpenAI(generator.Options{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.GeneratorTimeout,
	})
	switch {
	case err == nil:
		opts.Generator = gen
	case errors.Is(err, generator.ErrNotConfigured):
		logger.Info("quiz generation disabled: OPENAI_API_KEY not set")
	default:
		log.Fatalf("generator: %v", err)
	}
	svc := service.New(store, users, opts)

	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	api.Mount(r, api.Deps{
		Service:            svc,
		Accounts:           users,
		Auth:               authSvc,
		Log:                logger,
		EnableRegistration: cfg.EnableRegistration,
		ImportMaxBytes:     cfg.ImportMaxBytes,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver, "blobs", cfg.BlobDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
