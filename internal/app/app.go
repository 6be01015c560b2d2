// Package app wires together all dependencies and runs the ingestor.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utafrali/product-image-ingest/internal/config"
	"github.com/utafrali/product-image-ingest/internal/deadletter"
	"github.com/utafrali/product-image-ingest/internal/event"
	"github.com/utafrali/product-image-ingest/internal/handler/cloudevent"
	"github.com/utafrali/product-image-ingest/internal/repository/mongodb"
	"github.com/utafrali/product-image-ingest/internal/service"
	"github.com/utafrali/product-image-ingest/internal/storage/gcs"
	"github.com/utafrali/product-image-ingest/internal/variant"
	pkgkafka "github.com/utafrali/product-image-ingest/pkg/kafka"
)

// App holds the wired dependency graph of the ingestor.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	mongo    *mongo.Client
	producer *pkgkafka.Producer
	handler  *cloudevent.Handler
}

// NewApp creates a new application instance, initializing all external
// clients once per process.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDB))

	storageClient, err := gcstorage.NewClient(ctx)
	if err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	logger.Info("storage client initialized",
		slog.String("bucket", cfg.StorageBucket),
		slog.String("region", cfg.Region),
	)

	var kafkaProducer *pkgkafka.Producer
	var producer *event.Producer
	if cfg.EventsEnabled() {
		kafkaProducer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		producer = event.NewProducer(kafkaProducer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	repo := mongodb.NewProductRepository(mongoClient.Database(cfg.MongoDB))
	store := gcs.New(storageClient, cfg.StorageBucket)
	router := deadletter.NewRouter(store, logger)
	gen := variant.NewGenerator()

	svc := service.NewIngestService(
		repo, store, gen, router, producer, logger,
		cfg.IngestTimeout, cfg.TempDir,
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		mongo:    mongoClient,
		producer: kafkaProducer,
		handler:  cloudevent.NewHandler(svc, logger),
	}, nil
}

// Run registers the CloudEvent function, serves metrics on a side port,
// and blocks until the context is cancelled or the function host fails.
func (a *App) Run(ctx context.Context) error {
	metricsSrv := &http.Server{
		Addr:    ":" + strconv.Itoa(a.cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	if err := funcframework.RegisterCloudEventFunctionContext(ctx, "/", a.handler.Handle); err != nil {
		return fmt.Errorf("register cloudevent function: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- funcframework.Start(strconv.Itoa(a.cfg.Port))
	}()

	a.logger.Info("function host listening", slog.Int("port", a.cfg.Port))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			a.shutdown()
			return fmt.Errorf("function host: %w", err)
		}
	}

	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("close kafka producer", slog.String("error", err.Error()))
		}
	}
	if err := a.mongo.Disconnect(shutdownCtx); err != nil {
		a.logger.Error("disconnect mongodb", slog.String("error", err.Error()))
	}
}
