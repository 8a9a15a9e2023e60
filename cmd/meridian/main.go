package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/accounts"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/findoc"
	"github.com/meridian-erp/meridian-erp/internal/journal"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	convention, err := ledger.ConventionByName(cfg.LedgerConvention)
	if err != nil {
		logger.Error("resolve ledger convention", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	pgSequences := numbering.NewPostgresStore(pool)
	var sequenceStore numbering.Store = pgSequences
	if cfg.SequenceBackend == "redis" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		redisStore := numbering.NewRedisStore(redisClient)
		configs, err := pgSequences.ListConfigs(ctx)
		if err != nil {
			logger.Error("load sequence configs", slog.Any("error", err))
			os.Exit(1)
		}
		for _, seqCfg := range configs {
			if err := redisStore.Register(seqCfg); err != nil {
				logger.Error("register sequence", slog.String("document_type", seqCfg.DocumentType), slog.Any("error", err))
				os.Exit(1)
			}
		}
		sequenceStore = redisStore
	}
	numberingService := numbering.NewService(sequenceStore, logger, metrics, cfg.AllocateTimeout)
	numberingHandler := numbering.NewHandler(logger, numberingService)

	documentRepo := findoc.NewRepository(pool)
	documentService := findoc.NewService(documentRepo, idempotencyStore, auditLogger, logger)
	documentHandler := findoc.NewHandler(logger, documentService)

	accountsRepo := accounts.NewRepository(pool)
	accountHandler := accounts.NewHandler(logger, accountsRepo)

	journalRepo := journal.NewRepository(pool)
	journalService := journal.NewService(journalRepo, accountsRepo, auditLogger, metrics, logger)
	journalHandler := journal.NewHandler(logger, journalService)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, ledger.NewTracker(convention), auditLogger, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		NumberingHandler: numberingHandler,
		AccountHandler:   accountHandler,
		DocumentHandler:  documentHandler,
		JournalHandler:   journalHandler,
		LedgerHandler:    ledgerHandler,
		JobHandler:       jobHandler,
		Pool:             pool,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
