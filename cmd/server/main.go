package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/inkwell/internal/api"
	"github.com/dgallion1/inkwell/internal/blobstore"
	"github.com/dgallion1/inkwell/internal/config"
	"github.com/dgallion1/inkwell/internal/enhance"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Error("init storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}

	svc, closeCache := newEnhancer(cfg, log)

	srv := api.NewServer(svc, store, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		srv.Close()
		if svc != nil {
			svc.Close()
		}
		closeCache()
	}()

	log.Info("starting inkwell", "port", cfg.Port, "storage", store.Name(), "enhance", svc != nil)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newStore(ctx context.Context, cfg config.Config) (blobstore.Store, error) {
	switch cfg.StorageBackend {
	case "local":
		return blobstore.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	case "minio":
		return blobstore.NewMinIOStore(ctx, blobstore.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			Region:    cfg.MinIORegion,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		})
	}
	return blobstore.Placeholder{}, nil
}

// newEnhancer builds the enhancement service, or returns nil when no
// model key is configured. The returned func closes the cache.
func newEnhancer(cfg config.Config, log *slog.Logger) (*enhance.Service, func()) {
	noop := func() {}
	if !cfg.LLMConfigured() {
		log.Warn("no llm api key configured, enhancement disabled", "provider", cfg.LLMProvider)
		return nil, noop
	}
	model, err := enhance.NewModel(enhance.ModelConfig{
		Provider:        cfg.LLMProvider,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
	})
	if err != nil {
		log.Error("init llm model, enhancement disabled", "error", err)
		return nil, noop
	}

	var cache enhance.Cache = enhance.NewMemoryCache(cfg.EnhanceCacheTTL)
	closeCache := noop
	if cfg.RedisURL != "" {
		rc, err := enhance.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, using in-memory enhance cache", "error", err)
		} else {
			cache = rc
			closeCache = func() { rc.Close() }
		}
	}

	svc := enhance.NewService(model,
		enhance.WithCache(cache, cfg.EnhanceCacheTTL),
		enhance.WithLogger(log.With("component", "enhance")),
	)
	return svc, closeCache
}
