package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/healthdesk/assistant/internal/config"
	"github.com/healthdesk/assistant/internal/handler"
	"github.com/healthdesk/assistant/internal/intent"
	"github.com/healthdesk/assistant/internal/service/ai"
	chatservice "github.com/healthdesk/assistant/internal/service/chat"
	"github.com/healthdesk/assistant/internal/store"
	"github.com/healthdesk/assistant/internal/triage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	persistence, err := newTranscriptStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("failed to initialize transcript store: %v", err)
	}

	backend := newBackend(ctx, cfg.AI)
	genService := ai.NewService(backend, cfg.AI)

	classifier := intent.NewClassifier()
	resolver := triage.NewResolver(genService)
	chatService := chatservice.NewService(classifier, resolver, persistence)

	router := handler.NewRouter(chatService)

	startServer(ctx, cfg.Server, router)
}

// newTranscriptStore picks Postgres when DATABASE_URL is set, per-session
// JSON files otherwise.
func newTranscriptStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Printf("transcripts stored as JSON files under %s", cfg.TranscriptDir)
		return store.NewFileStore(cfg.TranscriptDir)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, err
	}

	log.Println("transcripts stored in Postgres")
	return store.NewPostgresStore(ctx, db)
}

// newBackend builds the configured generation provider. Missing
// credentials degrade to fallback-only replies instead of failing startup.
func newBackend(ctx context.Context, cfg config.AIConfig) ai.Backend {
	if !cfg.Enabled() {
		log.Println("generation credentials not configured, canned replies and fallback only")
		return nil
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		log.Printf("generation backend: openai model=%s", cfg.OpenAIModel)
		return ai.NewOpenAIBackend(cfg.OpenAIKey, cfg.OpenAIModel, cfg.MaxTokens)
	default:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize ark chat model: %v", err)
			log.Println("continuing without generation, fallback replies only")
			return nil
		}
		backend, err := ai.NewArkBackend(ctx, chatModel)
		if err != nil {
			log.Printf("warning: failed to build generation chain: %v", err)
			return nil
		}
		log.Printf("generation backend: ark model=%s", cfg.Model)
		return backend
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("healthdesk assistant listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
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
