// Command server starts the candidate screening HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	ai "github.com/fairyhunter13/candidate-screener/internal/adapter/ai"
	"github.com/fairyhunter13/candidate-screener/internal/adapter/ai/openrouter"
	"github.com/fairyhunter13/candidate-screener/internal/adapter/ai/tokencount"
	httpserver "github.com/fairyhunter13/candidate-screener/internal/adapter/httpserver"
	lockredis "github.com/fairyhunter13/candidate-screener/internal/adapter/lock/redis"
	"github.com/fairyhunter13/candidate-screener/internal/adapter/notify/resend"
	"github.com/fairyhunter13/candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/candidate-screener/internal/adapter/repo/postgres"
	tikaext "github.com/fairyhunter13/candidate-screener/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/candidate-screener/internal/app"
	"github.com/fairyhunter13/candidate-screener/internal/config"
	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/usecase"
)

// redisAdapter narrows *redis.Client to the readiness check interface.
type redisAdapter struct{ *goredis.Client }

func (r redisAdapter) Ping(ctx context.Context) app.RedisPingResult { return r.Client.Ping(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, AI, and analysis instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Infra: DB pool
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Infra: Redis (analysis locks)
	rdb := lockredis.NewClient(cfg.RedisAddr, cfg.RedisPassword)
	defer func() { _ = rdb.Close() }()
	locker := lockredis.New(rdb)

	// Repositories
	jobRepo := postgres.NewJobRepo(pool)
	candRepo := postgres.NewCandidateRepo(pool)
	assessRepo := postgres.NewAssessmentRepo(pool)
	fileRepo := postgres.NewFileRepo(pool)
	activityRepo := postgres.NewActivityRepo(pool)

	// AI adapters
	orClient := openrouter.New(cfg)
	counter := tokencount.NewCounter()
	scorer := ai.NewScorer(orClient, counter, cfg.ScoringModel, cfg.PromptTokenCap)
	entities := ai.NewEntityExtractor(orClient)
	var ocr usecase.OCRReader
	if cfg.OCREnabled() {
		ocr = ai.NewOCRExtractor(orClient)
		slog.Info("ocr escalation enabled", slog.String("model", cfg.VisionModel))
	}

	// External text extractor (Apache Tika)
	ext := tikaext.New(cfg.TikaURL)

	// Outbound mail
	var mailer domain.Mailer
	if cfg.MailEnabled() {
		mailer = resend.New(cfg.ResendAPIKey, cfg.ResendBaseURL, cfg.MailFromAddress)
	}

	// Usecases
	jobSvc := usecase.NewJobService(jobRepo, candRepo, fileRepo, activityRepo)
	candSvc := usecase.NewCandidateService(candRepo, jobRepo, fileRepo, activityRepo, ext, entities, ocr, mailer, cfg.BulkUploadBatchSize)
	assessSvc := usecase.NewAssessmentService(assessRepo, candRepo, activityRepo, ext)
	maxRetries, baseDelay := cfg.GetRetryConfig()
	analyzeSvc := usecase.NewAnalyzeService(candRepo, jobRepo, assessRepo, activityRepo, scorer, locker, maxRetries, baseDelay, cfg.AnalysisLockTTL)

	// Optional default jobs
	if cfg.SeedFile != "" {
		if err := seedJobsFromYAML(ctx, jobSvc, cfg.SeedFile); err != nil {
			slog.Warn("seeding failed", slog.Any("error", err))
		}
	}

	// Readiness checks
	dbCheck, redisCheck, tikaCheck := app.BuildReadinessChecks(cfg, pool, redisAdapter{rdb})

	// HTTP server
	srv := httpserver.NewServer(cfg, jobSvc, candSvc, assessSvc, analyzeSvc, activityRepo, dbCheck, redisCheck, tikaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
