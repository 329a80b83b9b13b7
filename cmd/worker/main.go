package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/config"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/email"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/metrics"
	miniostorage "github.com/fiapx/fiapx-cutdetect-service/internal/infra/minio"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/postgres"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/rabbitmq"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/tracing"
	"github.com/fiapx/fiapx-cutdetect-service/internal/usecase"
	"github.com/fiapx/fiapx-cutdetect-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(".env")
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting " + tracing.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else if tp != nil {
		defer tp.Shutdown(context.Background())
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	fatalOnErr(postgres.RunMigrations(ctx, cfg.DatabaseURL, cfg.MigrationsPath), "run migrations")

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		ResultBucket: cfg.MinIOResultBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	presets, err := config.LoadPresets(cfg.PresetsFile)
	fatalOnErr(err, "load detection presets")
	if len(presets) > 0 {
		log.Info("detection presets loaded", zap.Int("count", len(presets)))
	}

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	repo := postgres.NewJobRepository(pool)
	cutRepo := postgres.NewCutRepository(pool)
	decoder := ffmpeg.NewDecoder(cfg.FFmpegPath, cfg.FFprobePath, cfg.AnalysisWidth, log)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
	cancels := usecase.NewCancelRegistry(usecase.DefaultPendingCancelTTL)

	// Use cases
	detect := usecase.NewDetectCutsUseCase(
		repo, cutRepo, storage, decoder,
		statusPub, dlqPub, notifier, cancels,
		log,
		usecase.DetectCutsConfig{
			TempDir:      cfg.TempDir,
			MaxRetries:   cfg.MaxRetries,
			Defaults:     cfg.DetectionDefaults(),
			Presets:      presets,
			ProgressStep: cfg.ProgressStep,
		},
	)
	cancelJob := usecase.NewCancelJobUseCase(cancels, dlqPub, log)
	annotate := usecase.NewAnnotateCutUseCase(repo, cutRepo, storage, dlqPub, log)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func() error {
		if rmqConn.IsClosed() {
			return errors.New("rabbitmq connection closed")
		}
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer pingCancel()
		return pool.Ping(pingCtx)
	}, log)

	topology := rabbitmq.Topology{
		Exchange: cfg.RabbitMQExchange,
		Queues: []string{
			cfg.RabbitMQDetectionQueue, cfg.RabbitMQCancelQueue,
			cfg.RabbitMQNotesQueue, cfg.RabbitMQStatusQueue,
		},
		Unbound:  []string{cfg.RabbitMQDLQ},
	}

	// Consumers: the detection worker pool plus single cancel and notes listeners
	detectConsumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQDetectionQueue,
		Topology:    topology,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, detect.Execute, log)
	fatalOnErr(err, "create detection consumer")
	defer detectConsumer.Close()

	cancelConsumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQCancelQueue,
		Topology:    topology,
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, cancelJob.Execute, log)
	fatalOnErr(err, "create cancel consumer")
	defer cancelConsumer.Close()

	notesConsumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQNotesQueue,
		Topology:    topology,
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, annotate.Execute, log)
	fatalOnErr(err, "create notes consumer")
	defer notesConsumer.Close()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info(tracing.ServiceName+" started, consuming messages",
		zap.String("detection_queue", cfg.RabbitMQDetectionQueue),
		zap.String("cancel_queue", cfg.RabbitMQCancelQueue),
		zap.String("notes_queue", cfg.RabbitMQNotesQueue),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return detectConsumer.Start(gctx) })
	g.Go(func() error { return cancelConsumer.Start(gctx) })
	g.Go(func() error { return notesConsumer.Start(gctx) })
	if err := g.Wait(); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info(tracing.ServiceName + " stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
