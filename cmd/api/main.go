package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/corpus-chat/internal/adapters/http"
	"github.com/kirillkom/corpus-chat/internal/bootstrap"
	"github.com/kirillkom/corpus-chat/internal/config"
	"github.com/kirillkom/corpus-chat/internal/observability/logging"
	"github.com/kirillkom/corpus-chat/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Any instance can mutate the corpus, so every instance listens for
	// corpus-changed and drops its local cache.
	go func() {
		err := app.Queue.SubscribeCorpusChanged(ctx, func(_ context.Context, documentID string) error {
			slog.Info("corpus changed, invalidating cache", "document_id", documentID)
			app.Cache.InvalidateAll()
			return nil
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("corpus-changed subscription failed", "error", err)
		}
	}()

	srvMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app.Cache.SetLookupObserver(func(kind string, hit bool) {
		srvMetrics.RecordCacheLookup(serviceName, kind, hit)
	})
	queryService := metrics.InstrumentQueryService(app.QueryUC, srvMetrics, serviceName, cfg.OpenRouterModel)
	router := httpadapter.NewRouter(app.IngestUC, app.Repo, queryService, func() any {
		return app.Cache.Stats()
	}).Handler()

	mux := http.NewServeMux()
	mux.Handle("/metrics", srvMetrics.Handler())
	mux.Handle("/", srvMetrics.Middleware(serviceName, router))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown failed", "error", err)
	}
}
