package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/storefront-analytics/internal/api/handlers"
	"github.com/dvloznov/storefront-analytics/internal/api/middleware"
	"github.com/dvloznov/storefront-analytics/internal/config"
	"github.com/dvloznov/storefront-analytics/internal/dispatch"
	"github.com/dvloznov/storefront-analytics/internal/ga4"
	"github.com/dvloznov/storefront-analytics/internal/logger"
	"github.com/dvloznov/storefront-analytics/internal/sink"
	"github.com/dvloznov/storefront-analytics/internal/sink/bq"
	"github.com/dvloznov/storefront-analytics/internal/sink/ga4mp"
)

func main() {
	cfg := config.FromEnv()

	// Parse command-line flags (override environment)
	var (
		port     = flag.String("port", cfg.Port, "HTTP server port")
		sinkKind = flag.String("sink", cfg.Sink, "analytics sink: ga4 or bigquery")
		debug    = flag.Bool("debug", cfg.Debug, "enable diagnostic logging")
	)
	flag.Parse()
	cfg.Port = *port
	cfg.Sink = *sinkKind
	cfg.Debug = *debug

	// Initialize logger
	log := logger.New(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	// Build the configured sink and initialize it once at process start.
	var out sink.Sink
	switch cfg.Sink {
	case config.SinkBigQuery:
		bqSink, err := bq.New(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery sink")
		}
		defer bqSink.Close()
		out = bqSink
	default:
		out = ga4mp.NewClient(cfg.GA4MeasurementID, cfg.GA4APISecret, cfg.GA4Endpoint, "")
	}

	if err := out.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sink")
	}

	// Wire the mapping rules to the dispatcher.
	mapper := ga4.NewMapper(ga4.Settings{
		DefaultCurrency: cfg.DefaultCurrency,
		FallbackBrand:   cfg.FallbackBrand,
		IDPrefix:        cfg.IDPrefix,
	}, log)
	dispatcher := dispatch.New(out, log)
	pixelHandler := handlers.NewPixelHandler(mapper.Rules(), dispatcher, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/pixel/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			pixelHandler.HandleEvent(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("sink", cfg.Sink).Msg("Starting relay server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
