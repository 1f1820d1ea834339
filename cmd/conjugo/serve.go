package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	httpadapter "github.com/conjugo/conjugo/internal/adapters/http"
	"github.com/conjugo/conjugo/internal/adapters/id"
	"github.com/conjugo/conjugo/internal/adapters/kafka"
	"github.com/conjugo/conjugo/internal/adapters/postgres"
	"github.com/conjugo/conjugo/internal/adapters/tracing"
	"github.com/conjugo/conjugo/internal/application/services"
	"github.com/conjugo/conjugo/internal/cache"
	"github.com/conjugo/conjugo/internal/generation"
	"github.com/conjugo/conjugo/internal/llm"
	"github.com/conjugo/conjugo/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and worker pool",
		Long: `Start the conjugo HTTP API server, the background worker pool, and the
request-expiration sweeper in one process.

Required configuration:
  - PostgreSQL (CONJUGO_POSTGRES_URL)
  - LLM endpoint (CONJUGO_LLM_URL, CONJUGO_LLM_API_KEY)
  - Broker endpoints (CONJUGO_BROKERS)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	log.Println("Starting conjugo...")
	log.Printf("  HTTP:   http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  LLM:    %s (%s)", cfg.LLM.URL, cfg.LLM.Model)
	log.Printf("  Broker: %v topic=%s", cfg.Broker.Brokers, cfg.Broker.Topic)

	shutdownTracer, err := tracing.InitTracer("conjugo-api")
	if err != nil {
		log.Printf("Warning: failed to initialize tracing: %v", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			log.Printf("Warning: failed to initialize sentry: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Println("Database connection established")

	verbRepo := postgres.NewVerbRepository(pool)
	conjugationRepo := postgres.NewConjugationRepository(pool)
	sentenceRepo := postgres.NewSentenceRepository(pool)
	problemRepo := postgres.NewProblemRepository(pool)
	requestRepo := postgres.NewGenerationRequestRepository(pool)
	apiKeyRepo := postgres.NewAPIKeyRepository(pool)

	idGen := id.New()

	verbCache := cache.NewVerbCache(verbRepo)
	conjugationCache := cache.NewConjugationCache(conjugationRepo)
	keyCache := cache.NewKeyCache(apiKeyRepo)
	for name, reload := range map[string]func(context.Context) error{
		"verbs":        verbCache.ReloadAll,
		"conjugations": conjugationCache.ReloadAll,
		"keys":         keyCache.ReloadAll,
	} {
		if err := reload(ctx); err != nil {
			log.Printf("Warning: failed to warm %s cache: %v", name, err)
		}
	}

	migrator := kafka.NewMigrator(cfg.Broker.Brokers)
	topics, err := kafka.LoadTopics(cfg.Broker.TopicsFile)
	if err != nil {
		log.Printf("Warning: failed to load topic manifest: %v", err)
	} else if err := migrator.Migrate(ctx, topics); err != nil {
		log.Printf("Warning: topic migration failed: %v", err)
	}

	if partitions, err := migrator.PartitionCount(ctx, cfg.Broker.Topic); err == nil {
		if cfg.Generation.WorkerCount > partitions {
			log.Printf("Warning: %d workers but only %d partitions on %s; %d workers will idle",
				cfg.Generation.WorkerCount, partitions, cfg.Broker.Topic,
				cfg.Generation.WorkerCount-partitions)
		}
	} else {
		log.Printf("Warning: failed to read partition count: %v", err)
	}

	publisher := kafka.NewPublisher(cfg.Broker.Brokers, cfg.Broker.Topic)
	defer publisher.Close()

	llmClient := llm.NewClient(cfg.LLM.URL, cfg.LLM.APIKey, cfg.LLM.MaxTokens, cfg.LLM.Temperature, cfg.LLM.MaxRetries)
	generator := llm.NewService(llmClient, cfg.LLM.Model)
	packager := generation.NewPackager(generator, idGen, cfg.LLM.Model)

	tracker := services.NewTracker(requestRepo, problemRepo, idGen,
		time.Duration(cfg.Generation.RequestExpiryMinutes)*time.Minute)
	selector := services.NewSelector(problemRepo, cfg.Generation.VirtualStalenessDays)
	sweeper := services.NewSweeper(tracker,
		time.Duration(cfg.Generation.SweepIntervalSeconds)*time.Second)

	workerPool := worker.NewPool(
		worker.PoolConfig{
			Size:           cfg.Generation.WorkerCount,
			MessageTimeout: time.Duration(cfg.Generation.MessageTimeoutMs) * time.Millisecond,
		},
		kafka.NewConsumerFactory(cfg.Broker.Brokers, cfg.Broker.Topic),
		tracker, verbRepo, verbCache, conjugationCache, sentenceRepo, problemRepo, packager,
	)

	server := httpadapter.NewServer(cfg.Server.Host, cfg.Server.Port, httpadapter.Deps{
		DB:           pool,
		Selector:     selector,
		Tracker:      tracker,
		Requests:     requestRepo,
		Publisher:    publisher,
		IDGen:        idGen,
		Verbs:        verbCache,
		Conjugations: conjugationCache,
		Keys:         keyCache,
		APIKeys:      apiKeyRepo,
		Broker:       migrator,
		Topic:        cfg.Broker.Topic,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := workerPool.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	go sweeper.Run(runCtx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-runCtx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	// Workers observe runCtx cancellation; wait for in-flight messages.
	stop()
	workerPool.Stop()

	log.Println("Shutdown complete")
	return nil
}
