package main

// @title           PolicyPal API
// @version         1.0
// @description     Company policy assistant. Answers questions by retrieving IT and HR policy context, running both policy experts and coordinating their analyses into one answer.

// @contact.name   Custodia Labs
// @contact.url    https://github.com/custodia-labs/policypal/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/custodia-labs/policypal/docs"
	"github.com/custodia-labs/policypal/internal/adapters/driven/ai"
	"github.com/custodia-labs/policypal/internal/adapters/driven/auth"
	"github.com/custodia-labs/policypal/internal/adapters/driven/extract"
	"github.com/custodia-labs/policypal/internal/adapters/driven/memory"
	"github.com/custodia-labs/policypal/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/policypal/internal/adapters/driven/redis"
	"github.com/custodia-labs/policypal/internal/adapters/driving/http"
	"github.com/custodia-labs/policypal/internal/config"
	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
	"github.com/custodia-labs/policypal/internal/core/services"
	"github.com/custodia-labs/policypal/internal/postprocessors"
	"github.com/custodia-labs/policypal/internal/runtime"
	"github.com/custodia-labs/policypal/internal/worker"
)

var version = "dev"

// backendCheckTimeout bounds the startup health checks of hosted AI services
const backendCheckTimeout = 30 * time.Second

// app holds the wired services shared by every run mode
type app struct {
	auth      driving.AuthService
	users     driving.UserService
	ingestion driving.IngestionService
	query     driving.QueryService
	runtime   *domain.RuntimeConfig
	checks    map[string]http.Pinger
}

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := os.Getenv("RUN_MODE")
	if mode == "" {
		mode = "serve"
	}
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("policypal %s starting in %s mode", version, mode)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	a, cleanup := wire(ctx, cfg)
	defer cleanup()

	switch mode {
	case "serve":
		runServe(cfg, a)

	case "ingest":
		if len(os.Args) < 4 {
			log.Fatalf("Usage: policypal ingest <IT|HR|General> <file>...")
		}
		if code := runIngest(ctx, cfg, a, os.Args[2], os.Args[3:]); code != 0 {
			cleanup()
			os.Exit(code)
		}

	default:
		log.Fatalf("Unknown mode: %s (use: serve or ingest)", mode)
	}
}

// wire connects the storage backends and builds the services. The returned
// cleanup closes every connection it opened.
func wire(ctx context.Context, cfg *config.Config) (*app, func()) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}
	checks := make(map[string]http.Pinger)

	// ===== Initialize PostgreSQL (optional) =====
	var db *postgres.DB
	if cfg.DatabaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		var err error
		db, err = postgres.Open(ctx, postgres.PoolOptions{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		closers = append(closers, func() { _ = db.Close() })

		// Apply schema (idempotent)
		if cfg.InitSchema {
			if err := db.Migrate(ctx); err != nil {
				log.Fatalf("Failed to initialize schema: %v", err)
			}
		}
		checks["database"] = db
		log.Println("PostgreSQL connected")
	}

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		checks["redis"] = http.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		log.Println("Redis connected")
	}

	// ===== AI services (one embedding function, one generation backend) =====
	runtimeConfig := domain.NewRuntimeConfig(cfg.SessionBackend(), cfg.StorageBackend())
	runtimeServices := runtime.NewServices(runtimeConfig)
	selection := runtime.Selection{
		Embedding:  cfg.Embedding,
		Generation: cfg.Generation,
		Fallback:   cfg.GenerationFallback,
		Verify:     cfg.VerifyBackends,
		Logger:     slog.Default(),
	}
	if redisClient != nil && cfg.EmbeddingCacheTTL > 0 {
		selection.WrapEmbedding = func(inner driven.EmbeddingService) driven.EmbeddingService {
			return redisadapter.NewEmbeddingCache(inner, redisClient, cfg.EmbeddingCacheTTL, slog.Default())
		}
		log.Printf("Embedding cache enabled (ttl=%s)", cfg.EmbeddingCacheTTL)
	}
	factory := ai.NewFactoryWithRateLimit(ai.RateLimitConfig{
		RequestsPerSecond: cfg.OpenAIRequestsPerSecond,
		Burst:             cfg.OpenAIBurst,
	})
	installCtx, cancelInstall := context.WithTimeout(ctx, backendCheckTimeout)
	err := runtimeServices.Install(installCtx, factory, selection)
	cancelInstall()
	if err != nil {
		log.Fatalf("Failed to initialize AI services: %v", err)
	}
	closers = append(closers, func() { _ = runtimeServices.Close() })
	checks["embedding"] = http.PingFunc(func(ctx context.Context) error {
		return runtimeServices.EmbeddingService().HealthCheck(ctx)
	})
	checks["generation"] = http.PingFunc(func(ctx context.Context) error {
		return runtimeServices.GenerationBackend().Ping(ctx)
	})

	// ===== Stores =====
	var (
		documentStore driven.DocumentStore
		vectorIndex   driven.VectorIndex
		historyStore  driven.HistoryStore
		userStore     driven.UserStore
		sessionStore  driven.SessionStore
		lock          driven.DistributedLock
	)
	if db != nil {
		documentStore = postgres.NewDocumentStore(db)
		vectorIndex = postgres.NewVectorIndex(db)
		historyStore = postgres.NewHistoryStore(db)
		userStore = postgres.NewUserStore(db)
		sessionStore = postgres.NewSessionStore(db)
		lock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL stores and advisory locks")
	} else {
		documentStore = memory.NewDocumentStore()
		vectorIndex = memory.NewVectorIndex(runtimeServices.EmbeddingService().Dimensions())
		historyStore = memory.NewHistoryStore()
		userStore = memory.NewUserStore()
		sessionStore = memory.NewSessionStore()
		lock = memory.NewLock()
		log.Println("Using in-memory stores (set DATABASE_URL to persist)")
	}

	// ===== Session Store and Lock (Redis if available) =====
	if redisClient != nil {
		sessionStore = redisadapter.NewSessionStore(redisClient)
		lock = redisadapter.NewLock(redisClient)
		log.Println("Using Redis session store and distributed lock")
	}

	// ===== Services (core business logic) =====
	authAdapter := auth.NewAdapter(cfg.JWTSecret)

	ingestionService := services.NewIngestionService(
		documentStore,
		vectorIndex,
		lock,
		extract.NewExtractor(),
		postprocessors.DefaultPipeline(postprocessors.ChunkConfig{
			MaxChunkSize: cfg.ChunkSize,
			Overlap:      cfg.ChunkOverlap,
		}),
		runtimeServices,
		services.IngestionConfig{Logger: slog.Default()},
	)
	if err := ingestionService.VerifyEmbeddingModel(ctx); err != nil {
		log.Fatalf("Embedding model check failed (re-ingest documents or restore the previous EMBEDDING_MODEL): %v", err)
	}

	orchestrator := services.NewOrchestrator(
		services.NewRetriever(vectorIndex, runtimeServices, services.RetrieverConfig{
			TopK:     cfg.TopK,
			MinScore: cfg.MinScore,
			Logger:   slog.Default(),
		}),
		services.NewExpert(domain.AreaIT, cfg.Roles.IT, runtimeServices),
		services.NewExpert(domain.AreaHR, cfg.Roles.HR, runtimeServices),
		services.NewCoordinator(cfg.Roles.Coordinator, runtimeServices),
		services.OrchestratorConfig{Logger: slog.Default()},
	)

	a := &app{
		auth: services.NewAuthService(services.AuthConfig{
			Users:    userStore,
			Sessions: sessionStore,
			Tokens:   authAdapter,
			TokenTTL: cfg.TokenTTL,
			Logger:   slog.Default(),
		}),
		users: services.NewUserService(services.UserConfig{
			Users:    userStore,
			Sessions: sessionStore,
			Tokens:   authAdapter,
			TeamID:   cfg.TeamID,
			Logger:   slog.Default(),
		}),
		ingestion: ingestionService,
		query: services.NewQueryService(orchestrator, historyStore, services.QueryConfig{
			Timeout: cfg.QueryTimeout,
			Logger:  slog.Default(),
		}),
		runtime: runtimeConfig,
		checks:  checks,
	}

	// Log startup configuration
	status := runtimeConfig.Snapshot()
	log.Printf("Runtime config: storage=%s, sessions=%s, embedding=%s, generation=%s, fallback=%t",
		status.StorageBackend,
		status.SessionBackend,
		status.EmbeddingModel,
		status.GenerationBackend,
		status.FallbackActive)

	return a, cleanup
}

func runServe(cfg *config.Config, a *app) {
	server := http.NewServer(
		http.Config{
			Host:        "0.0.0.0",
			Port:        cfg.Port,
			Version:     version,
			CORSOrigins: cfg.CORSOrigins,
			Logger:      slog.Default(),
		},
		http.Services{
			Auth:      a.auth,
			Users:     a.users,
			Ingestion: a.ingestion,
			Query:     a.query,
			Runtime:   a.runtime,
		},
		a.checks,
	)

	log.Printf("API server starting on :%d", cfg.Port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runIngest loads local files into one policy area and reports the outcome.
// It returns the process exit code.
func runIngest(ctx context.Context, cfg *config.Config, a *app, rawArea string, paths []string) int {
	area, err := domain.ParseTopicArea(rawArea)
	if err != nil {
		log.Printf("Invalid policy area: %v", err)
		return 2
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL is not set, ingested documents are discarded on exit")
	}

	jobs := make([]worker.Job, 0, len(paths))
	for _, path := range paths {
		jobs = append(jobs, worker.Job{Path: path, Area: area})
	}

	w := worker.NewWorker(worker.WorkerConfig{
		Ingestion:   a.ingestion,
		Logger:      slog.Default(),
		Concurrency: cfg.IngestConcurrency,
	})
	summary := w.Run(ctx, jobs)

	for _, r := range summary.Results {
		if r.Err != nil {
			fmt.Printf("FAIL  %s: %v\n", r.Job.Path, r.Err)
			continue
		}
		fmt.Printf("OK    %s -> %s (%d chunks)\n", r.Job.Path, r.Document.ID, r.Document.ChunkCount)
	}
	fmt.Printf("%d of %d files ingested into %s policies, %d chunks\n",
		len(jobs)-summary.Failed, len(jobs), area, summary.Chunks)

	if summary.Failed > 0 {
		return 1
	}
	return 0
}
