// README: Entry point; loads config, wires maps, pricing, assistant and transcript backends, serves the chat channel.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"parcel/internal/ai"
	"parcel/internal/config"
	httptransport "parcel/internal/http"
	"parcel/internal/infra"
	"parcel/internal/maps"
	"parcel/internal/modules/assistant"
	"parcel/internal/modules/pricing"
	"parcel/internal/modules/quote"
	"parcel/internal/modules/transcript"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := infra.NewMetrics()

	geocoder, router, err := newMapsProvider(cfg.Maps)
	if err != nil {
		logger.Fatal("maps init", zap.Error(err))
	}

	orders, closeOrders := newOrderStore(ctx, cfg, logger)
	defer closeOrders()

	quoteSvc := quote.NewService(
		geocoder,
		router,
		pricing.NewService(cfg.Pricing),
		orders,
		quote.Options{GeocodeTimeout: cfg.Maps.GeocodeTimeout, RouteTimeout: cfg.Maps.RouteTimeout},
		logger.Named("quote"),
		metrics,
	)

	provider, closeProvider, err := newAssistantProvider(ctx, cfg.Assistant)
	if err != nil {
		logger.Fatal("assistant init", zap.Error(err))
	}
	defer closeProvider()
	assistantSvc := assistant.NewService(provider, quoteSvc, cfg.Assistant.Timeout, logger.Named("assistant"), metrics)

	store, closeStore, err := newTranscriptStore(ctx, cfg)
	if err != nil {
		logger.Fatal("transcript init", zap.Error(err))
	}
	defer closeStore()
	transcriptSvc := transcript.NewService(store, cfg.Transcript.Timeout, logger.Named("transcript"), metrics)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Quotes:        quoteSvc,
		Assistant:     assistantSvc,
		Transcript:    transcriptSvc,
		AllowedOrigin: cfg.HTTP.AllowedOrigin,
		Logger:        logger,
		Metrics:       metrics,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("parcel-api listening",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("maps", cfg.Maps.Provider),
		zap.String("assistant", cfg.Assistant.Provider),
		zap.String("transcript", cfg.Transcript.Backend),
	)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("parcel-api stopped")
}

func newMapsProvider(cfg config.MapsConfig) (quote.Geocoder, quote.Router, error) {
	if cfg.Provider == config.MapsProviderGoogle {
		svc, err := maps.NewGoogleService(cfg.GoogleAPIKey)
		if err != nil {
			return nil, nil, err
		}
		return svc, svc, nil
	}
	svc := maps.NewOSMService(cfg.NominatimURL, cfg.OSRMURL, cfg.UserAgent)
	return svc, svc, nil
}

// newOrderStore uses Redis when configured. An unreachable Redis falls back
// to process memory so quoting keeps working.
func newOrderStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (quote.Store, func()) {
	if cfg.Redis.Addr == "" {
		return quote.NewMemoryStore(cfg.Redis.SessionTTL), func() {}
	}
	rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		logger.Warn("redis unavailable, keeping last orders in memory", zap.Error(err))
		return quote.NewMemoryStore(cfg.Redis.SessionTTL), func() {}
	}
	return quote.NewRedisStore(rdb, cfg.Redis.SessionTTL), func() { _ = rdb.Close() }
}

func newAssistantProvider(ctx context.Context, cfg config.AssistantConfig) (ai.LLMProvider, func(), error) {
	if cfg.Provider == config.AssistantProviderGemini {
		p, err := ai.NewGeminiProvider(ctx, cfg.GeminiKey, ai.Options{
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
	p := ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIKey, ai.Options{
		Model:       cfg.OpenAIModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	return p, func() {}, nil
}

func newTranscriptStore(ctx context.Context, cfg config.Config) (transcript.Store, func(), error) {
	switch cfg.Transcript.Backend {
	case config.TranscriptBackendFirebase:
		client, err := infra.NewFirebaseDatabase(ctx, cfg.Transcript.FirebaseProjectID, cfg.Transcript.FirebaseDatabaseURL, cfg.Transcript.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return transcript.NewFirebaseStore(client), func() {}, nil
	case config.TranscriptBackendPostgres:
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, nil, err
		}
		return transcript.NewPostgresStore(pool), pool.Close, nil
	default:
		return transcript.NewMemoryStore(), func() {}, nil
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
