package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application
	applicationPort "github.com/dreschagin/bench-history/internal/application/port"
	"github.com/dreschagin/bench-history/internal/application/usecase"

	// Domain
	"github.com/dreschagin/bench-history/internal/domain/service"

	// Infrastructure
	redisCache "github.com/dreschagin/bench-history/internal/infrastructure/cache/redis"
	natsInfra "github.com/dreschagin/bench-history/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/bench-history/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/bench-history/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/bench-history/internal/infrastructure/observability/promexport"
	dynamodbRepo "github.com/dreschagin/bench-history/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/bench-history/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/bench-history/internal/infrastructure/storage/s3"

	// Interfaces
	httpInterface "github.com/dreschagin/bench-history/internal/interfaces/http"
	"github.com/dreschagin/bench-history/internal/interfaces/http/handler"
	"github.com/dreschagin/bench-history/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/bench-history/pkg/config"
	"github.com/dreschagin/bench-history/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Benchmark History Service")

	// 3. Подключаемся к БД
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	// Проверяем подключение
	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", err)
		os.Exit(1)
	}
	if err := postgres.InitSchema(context.Background(), db); err != nil {
		log.Error("Failed to initialize database schema", err)
		os.Exit(1)
	}
	log.Info("Database connected successfully")

	// 4. Dependency Injection - Infrastructure Layer

	// Repository
	runRepository := postgres.NewPostgresRunRepository(db)

	// WebSocket Hub
	hub := wsInfra.NewHub(log)

	// Prometheus registry
	promMetrics := promexport.New()

	// 5. Dependency Injection - Domain Layer

	// Domain Services
	trendAggregator := service.NewTrendAggregator()
	runValidator := service.NewRunValidator()
	regressionDetector := service.NewRegressionDetector(
		cfg.Regression.WarningRatio,
		cfg.Regression.CriticalRatio,
	)

	// 5.5. CloudWatch Integration

	// CloudWatch Metrics Publisher
	var metricsPublisher applicationPort.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		publisherImpl, initErr := cloudwatch.NewMetricsPublisher(context.Background(),
			cloudwatch.MetricsPublisherConfig{
				Namespace:         cfg.CloudWatch.MetricsNamespace,
				Region:            cfg.CloudWatch.Region,
				Endpoint:          cfg.CloudWatch.Endpoint,
				AccessKeyID:       cfg.CloudWatch.AccessKeyID,
				SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
				DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
				BufferSize:        cfg.CloudWatch.MetricsBufferSize,
				FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
				StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
			})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", initErr)
			os.Exit(1)
		}
		metricsPublisher = publisherImpl
		log.Info("CloudWatch metrics publisher initialized")
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	// CloudWatch Logs Publisher
	var logsPublisher applicationPort.LogPublisher
	if cfg.CloudWatch.LogsEnabled {
		publisherImpl, initErr := cloudwatch.NewLogsPublisher(context.Background(),
			cloudwatch.LogsPublisherConfig{
				LogGroupName:    cfg.CloudWatch.LogGroupName,
				LogStreamName:   cfg.CloudWatch.LogStreamName,
				Region:          cfg.CloudWatch.Region,
				Endpoint:        cfg.CloudWatch.Endpoint,
				AccessKeyID:     cfg.CloudWatch.AccessKeyID,
				SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
				BufferSize:      cfg.CloudWatch.LogsBufferSize,
				FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
				AutoCreate:      true,
			})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", initErr)
			os.Exit(1)
		}
		logsPublisher = publisherImpl
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs publisher initialized")
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// 5.6. NATS Event Publisher
	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewNATSPublisher(cfg.NATS.URL, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	// 5.7. Redis Cache
	var trendCache applicationPort.Cache
	if cfg.Redis.Enabled {
		cacheImpl, initErr := redisCache.NewRedisCache(redisCache.Options{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			TTL:          cfg.Redis.TTL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if initErr != nil {
			log.Warn("Failed to connect to Redis, continuing without trend cache", "error", initErr.Error())
		} else {
			trendCache = cacheImpl
			defer cacheImpl.Close()
			log.Info("Redis trend cache initialized", "host", cfg.Redis.Host)
		}
	} else {
		log.Warn("Redis trend cache is disabled")
	}

	// 5.8. Snapshot export storage (S3 + DynamoDB index)
	var snapshotStorage applicationPort.SnapshotStorage
	if cfg.S3.Enabled {
		storageImpl, initErr := s3storage.NewSnapshotStorage(context.Background(), s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if initErr != nil {
			log.Error("Failed to initialize snapshot storage", initErr)
			os.Exit(1)
		}
		snapshotStorage = storageImpl
		log.Info("S3 snapshot storage initialized", "bucket", cfg.S3.Bucket)
	} else {
		log.Warn("S3 snapshot storage is disabled, data file export uploads will fail")
	}

	var snapshotMetadataRepo applicationPort.SnapshotMetadataRepository
	if cfg.Dynamo.Enabled {
		repoImpl, initErr := dynamodbRepo.NewSnapshotMetadataRepository(context.Background(), dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableSnapshots,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
		})
		if initErr != nil {
			log.Error("Failed to initialize snapshot metadata repository", initErr)
			os.Exit(1)
		}
		snapshotMetadataRepo = repoImpl
		log.Info("Snapshot metadata repository initialized", "provider", "dynamodb")
	} else {
		log.Warn("DynamoDB snapshot index is disabled, snapshot listing will be empty")
	}

	// 6. Dependency Injection - Application Layer (Use Cases)

	ingestRunUC := usecase.NewIngestRunUseCase(
		runRepository,
		runValidator,
		regressionDetector,
		hub,
		eventPublisher,   // Can be nil if NATS disabled
		metricsPublisher, // Can be nil if CloudWatch disabled
		trendCache,       // Can be nil if Redis disabled
		log,
	)

	getRunHistoryUC := usecase.NewGetRunHistoryUseCase(
		runRepository,
		trendAggregator,
	)

	getLatestRunsUC := usecase.NewGetLatestRunsUseCase(runRepository)

	getTrendUC := usecase.NewGetTrendUseCase(
		runRepository,
		trendAggregator,
		trendCache,
		log,
	)

	exportDataFileUC := usecase.NewExportDataFileUseCase(
		runRepository,
		trendAggregator,
		snapshotStorage,
		snapshotMetadataRepo,
		usecase.ExportSettings{
			RepoURL:        cfg.Export.RepoURL,
			XAxis:          cfg.Export.XAxis,
			OneChartGroups: cfg.Export.OneChartGroups,
			MaxRuns:        cfg.Export.MaxRuns,
		},
		log,
	)

	importDataFileUC := usecase.NewImportDataFileUseCase(
		runRepository,
		runValidator,
		log,
	)

	trimHistoryUC := usecase.NewTrimHistoryUseCase(
		runRepository,
		usecase.TrimSettings{
			MaxRunsPerSuite: cfg.History.MaxRunsPerSuite,
			MaxAge:          cfg.History.MaxAge,
		},
		log,
	)

	// 7. Dependency Injection - Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	runsAPIHandler := handler.NewRunsAPIHandler(
		ingestRunUC,
		getRunHistoryUC,
		getLatestRunsUC,
		cfg.Ingest.MaxPayloadBytes,
		promMetrics,
		log,
	)
	trendsAPIHandler := handler.NewTrendsAPIHandler(getTrendUC, 90*24*time.Hour, log)
	dataFileAPIHandler := handler.NewDataFileAPIHandler(exportDataFileUC, importDataFileUC, 0, promMetrics, log)
	websocketHandler := handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log)
	authAPIHandler := handler.NewAuthAPIHandler(authConfig, promMetrics, log)

	var ingestLimiter *middleware.IPRateLimiter
	if cfg.Ingest.RateLimitPerMinute > 0 {
		ingestLimiter = middleware.NewIPRateLimiter(
			float64(cfg.Ingest.RateLimitPerMinute)/60.0,
			cfg.Ingest.RateLimitPerMinute,
		)
	}

	// Router
	router := httpInterface.NewRouter(
		runsAPIHandler,
		trendsAPIHandler,
		dataFileAPIHandler,
		websocketHandler,
		authAPIHandler,
		promMetrics,
		ingestLimiter,
		cfg.Security,
		log,
	)

	// 8. Запускаем фоновые процессы

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем WebSocket hub
	go hub.Run()
	log.Info("WebSocket hub started")

	// Ретенция истории прогонов
	go func() {
		ticker := time.NewTicker(cfg.History.TrimInterval)
		defer ticker.Stop()

		log.Info("History retention started",
			"interval", cfg.History.TrimInterval.String(),
			"max_runs_per_suite", cfg.History.MaxRunsPerSuite)

		for {
			select {
			case <-ticker.C:
				report, err := trimHistoryUC.Execute(ctx)
				if err != nil {
					log.Error("Failed to trim run history", err)
					continue
				}
				if report.ExpiredDeleted > 0 || report.TrimmedDeleted > 0 {
					log.Info("Run history trimmed",
						"expired", report.ExpiredDeleted,
						"trimmed", report.TrimmedDeleted)
				}
			case <-ctx.Done():
				log.Info("History retention stopped")
				return
			}
		}
	}()

	// Gauge подключенных WebSocket клиентов
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				promMetrics.WebSocketClients.Set(float64(hub.ClientCount()))
			case <-ctx.Done():
				return
			}
		}
	}()

	// 9. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Запускаем сервер в отдельной goroutine
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		log.Info("Data file available at http://localhost:" + cfg.Server.Port + "/data.js")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 10. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	// Останавливаем фоновые процессы
	cancel()

	// Даем время на завершение текущих операций
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Flush CloudWatch buffers before shutdown
	if metricsPublisher != nil {
		log.Info("Flushing CloudWatch metrics buffer...")
		if err := metricsPublisher.Flush(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	if logsPublisher != nil {
		log.Info("Flushing CloudWatch logs buffer...")
		if err := logsPublisher.Flush(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch logs", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	log.Info("Server stopped gracefully")
}
