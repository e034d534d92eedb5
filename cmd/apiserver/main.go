// LeaseLens API server entry point: loads configuration, wires the
// infrastructure (PostgreSQL, Redis, Kafka, MinIO, Prometheus), and serves
// the analysis API until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leaselens/leaselens/internal/application/analysis"
	"github.com/leaselens/leaselens/internal/application/comparison"
	"github.com/leaselens/leaselens/internal/application/fairness"
	"github.com/leaselens/leaselens/internal/config"
	"github.com/leaselens/leaselens/internal/domain/valuation"
	"github.com/leaselens/leaselens/internal/infrastructure/database/postgres"
	"github.com/leaselens/leaselens/internal/infrastructure/database/postgres/repositories"
	"github.com/leaselens/leaselens/internal/infrastructure/database/redis"
	"github.com/leaselens/leaselens/internal/infrastructure/messaging/kafka"
	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/prometheus"
	"github.com/leaselens/leaselens/internal/infrastructure/storage/minio"
	"github.com/leaselens/leaselens/internal/intelligence/fieldex"
	httpserver "github.com/leaselens/leaselens/internal/interfaces/http"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; falling back to environment and defaults\n", err)
		cfg, err = config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: configuration failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: logFormat(cfg.Log.Format),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: logger failed: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("apiserver")
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := prometheus.New()

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", logging.Err(err))
	}
	defer pool.Close()

	if cfg.Database.MigrationPath != "" {
		if err := postgres.Migrate(cfg.Database, logger); err != nil {
			logger.Fatal("database migration failed", logging.Err(err))
		}
	}

	repo := repositories.NewOfferRepository(pool.Raw(), logger)

	checkers := map[string]httpserver.Checker{"postgres": pool}
	opts := analysis.Options{
		Store:            repo,
		Metrics:          metrics,
		Concurrency:      cfg.Analysis.Concurrency,
		DefaultCondition: valuation.Condition(cfg.Analysis.DefaultCondition),
	}

	// Redis, Kafka, and MinIO are optional: a missing endpoint disables the
	// corresponding pipeline stage rather than blocking startup.
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable; market context disabled", logging.Err(err))
		} else {
			defer redisClient.Close()
			checkers["redis"] = redisClient
			opts.Market = newCachedMarketProvider(redisClient, cfg.Redis, logger)
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, logger)
		defer producer.Close()
		opts.Events = producer
	}

	if cfg.MinIO.Endpoint != "" {
		documents, err := minio.NewDocumentStore(ctx, cfg.MinIO, logger)
		if err != nil {
			logger.Warn("minio unavailable; document archival disabled", logging.Err(err))
		} else {
			opts.Documents = documents
		}
	}

	service := analysis.NewService(
		fieldex.NewExtractor(fieldex.Config(cfg.Extractor), logger),
		fairness.NewEngine(fairness.DefaultThresholds(), logger),
		comparison.NewComparator(comparison.DefaultWeights(), logger),
		opts, logger)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Service:   service,
		Checkers:  checkers,
		Server:    cfg.Server,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
		Metrics:   metrics,
	})
	server := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", logging.Err(err))
		}
	}

	if err := server.Stop(context.Background()); err != nil {
		logger.Error("shutdown incomplete", logging.Err(err))
		os.Exit(1)
	}
}

// logFormat maps the application config's "text" to zap's console encoding.
func logFormat(format string) string {
	if format == "text" {
		return "console"
	}
	return format
}
