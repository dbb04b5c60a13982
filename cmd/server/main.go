package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sejin-p/webforge/internal/anthropic"
	"github.com/sejin-p/webforge/internal/db"
	"github.com/sejin-p/webforge/internal/db/postgres"
	"github.com/sejin-p/webforge/internal/db/sqlite"
	"github.com/sejin-p/webforge/internal/envsetup"
	"github.com/sejin-p/webforge/internal/generation"
	"github.com/sejin-p/webforge/internal/google"
	"github.com/sejin-p/webforge/internal/llm"
	"github.com/sejin-p/webforge/internal/logger"
	"github.com/sejin-p/webforge/internal/metrics"
	"github.com/sejin-p/webforge/internal/openai"
	"github.com/sejin-p/webforge/internal/task"
	"github.com/sejin-p/webforge/internal/web"
)

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
	slog.Info("exiting without error")
}

func mainE() error {
	_ = godotenv.Load()

	fs_ := ff.NewFlagSet("webforge")

	var (
		port            = fs_.Int64Long("port", 8080, "HTTP server port")
		databaseURL     = fs_.StringLong("database-url", "./webforge.db", "SQLite path or postgres:// connection URL")
		llmProvider     = fs_.StringEnumLong("llm-provider", "chat-completion provider", "openai", "anthropic", "google")
		llmModel        = fs_.StringLong("llm-model", "", "model name for code generation")
		openaiAPIKey    = fs_.StringLong("openai-api-key", "", "OpenAI API key")
		openaiBaseURL   = fs_.StringLong("openai-base-url", "", "alternative OpenAI-compatible endpoint")
		anthropicAPIKey = fs_.StringLong("anthropic-api-key", "", "Anthropic API key")
		googleAPIKey    = fs_.StringLong("google-api-key", "", "Google API key")
		modelRPS        = fs_.Float64Long("model-rate-limit", 1, "outbound model calls per second")
		maxConcurrent   = fs_.IntLong("max-concurrent", 4, "generations processed in parallel")
		queueSize       = fs_.IntLong("queue-size", 200, "pending generations accepted before rejecting with 503")
		rateLimitMax    = fs_.IntLong("rate-limit-max", 20, "client requests allowed per window")
		rateLimitWindow = fs_.IntLong("rate-limit-window", 60, "client rate limit window in seconds")
		cacheTTL        = fs_.DurationLong("cache-ttl", 15*time.Minute, "response cache TTL, 0 disables caching")
		setup           = fs_.BoolLong("setup", "run the interactive .env setup wizard and exit")
	)

	if err := ff.Parse(fs_, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs_))
		return fmt.Errorf("parsing flags: %w", err)
	}

	if *setup {
		if !envsetup.NeedsSetup() {
			return errors.New(".env already exists, remove it to run setup again")
		}
		done, err := envsetup.Run()
		if err != nil {
			return fmt.Errorf("running setup wizard: %w", err)
		}
		if done {
			fmt.Println("Configuration written to .env. Start the server without --setup.")
		}
		return nil
	}

	if *llmModel == "" {
		return errors.New("llm-model is required")
	}

	log := logger.Init()

	var llmClient llm.Client
	switch *llmProvider {
	case "openai":
		if *openaiAPIKey == "" {
			return errors.New("openai-api-key is required when using openai provider")
		}
		llmClient = openai.NewClient(*openaiAPIKey, *openaiBaseURL, *llmModel)
	case "anthropic":
		if *anthropicAPIKey == "" {
			return errors.New("anthropic-api-key is required when using anthropic provider")
		}
		llmClient = anthropic.NewClient(*anthropicAPIKey, anthropic.Model(*llmModel))
	case "google":
		if *googleAPIKey == "" {
			return errors.New("google-api-key is required when using google provider")
		}
		var err error
		llmClient, err = google.NewClient(context.Background(), *googleAPIKey, google.Model(*llmModel))
		if err != nil {
			return fmt.Errorf("creating Google client: %w", err)
		}
	}

	llmClient = llm.NewRetryClient(llmClient, log,
		llm.WithLimiter(rate.NewLimiter(rate.Limit(*modelRPS), 1)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, isPostgres, err := openRepository(ctx, *databaseURL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer repo.Close()
	log.InfoContext(ctx, "connected to database", "postgres", isPostgres)

	tasks := task.NewManager(*maxConcurrent, *queueSize, 30*time.Minute)
	defer tasks.Shutdown()

	svc := generation.NewService(repo, llmClient, log, *cacheTTL)
	router := web.NewRouter(repo, log, tasks, svc, web.Config{
		RateLimitMax:    *rateLimitMax,
		RateLimitWindow: *rateLimitWindow,
	})
	defer router.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// SSE connections stay open well past any sensible write timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.InfoContext(gctx, "starting server", "port", *port, "provider", *llmProvider, "model", *llmModel)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
		return nil
	})

	// Evict expired response cache entries.
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := repo.DeleteExpiredResponses(gctx); err != nil {
					log.Warn("deleting expired cached responses", "error", err)
				}
			}
		}
	})

	// Periodically export pgxpool stats as Prometheus gauges.
	if pg, ok := repo.(*postgres.Repository); ok {
		g.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					s := pg.PoolStats()
					metrics.DBPoolTotalConns.Set(float64(s.TotalConns()))
					metrics.DBPoolIdleConns.Set(float64(s.IdleConns()))
					metrics.DBPoolAcquiredConns.Set(float64(s.AcquiredConns()))
				}
			}
		})
	}

	return g.Wait()
}

func openRepository(ctx context.Context, databaseURL string) (db.Repository, bool, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		repo, err := postgres.New(ctx, databaseURL)
		return repo, true, err
	}
	repo, err := sqlite.New(ctx, databaseURL)
	return repo, false, err
}
