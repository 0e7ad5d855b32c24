package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/andrsolo/Request-Relay/config"
	"github.com/andrsolo/Request-Relay/internal/controller/ingest"
	kafkactrl "github.com/andrsolo/Request-Relay/internal/controller/kafka"
	"github.com/andrsolo/Request-Relay/internal/controller/restapi"
	"github.com/andrsolo/Request-Relay/internal/controller/worker/dispatch"
	"github.com/andrsolo/Request-Relay/internal/infrastructure"
	"github.com/andrsolo/Request-Relay/internal/infrastructure/httpdelivery"
	infrakafka "github.com/andrsolo/Request-Relay/internal/infrastructure/kafka"
	"github.com/andrsolo/Request-Relay/internal/repo"
	"github.com/andrsolo/Request-Relay/internal/repo/persistent"
	"github.com/andrsolo/Request-Relay/internal/usecase/origins"
	"github.com/andrsolo/Request-Relay/internal/usecase/relay"
	"github.com/andrsolo/Request-Relay/internal/usecase/schedule"
	"github.com/andrsolo/Request-Relay/pkg/httpserver"
	"github.com/andrsolo/Request-Relay/pkg/kafka/consumer"
	"github.com/andrsolo/Request-Relay/pkg/kafka/producer"
	"github.com/andrsolo/Request-Relay/pkg/logger"
	"github.com/andrsolo/Request-Relay/pkg/postgres"
	"github.com/andrsolo/Request-Relay/pkg/s3client"
)

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Repository

	// postgres
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - postgres.New: %w", err))
	}
	defer pg.Close()

	err = persistent.EnsureSchema(ctx, pg)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - persistent.EnsureSchema: %w", err))
	}

	requestRepo := persistent.NewRequestRepo(pg)
	attemptRepo := persistent.NewAttemptRepo(pg)
	originRepo := persistent.NewOriginRepo(pg)

	// s3 archive, optional
	var archiveRepo repo.ArchiveRepo
	if cfg.S3.Enabled {
		s3Ctx, s3Cancel := context.WithTimeout(ctx, cfg.S3.CfgLoadTimeout)
		s3c, err := s3client.New(s3Ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey)
		s3Cancel()
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - s3client.New: %w", err))
		}
		archiveRepo = persistent.NewArchiveRepo(s3c, cfg.S3.Bucket)
	}

	// kafka alert producer, optional
	var (
		alertPublisher infrastructure.AlertPublisher
		kafkaProducer  *producer.Producer
	)
	if cfg.Kafka.Enabled {
		kafkaProducer, err = producer.New(ctx, cfg.Kafka.Brokers)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - producer.New: %w", err))
		}
		alertPublisher = infrakafka.NewAlertProducer(kafkaProducer, cfg.Kafka.AlertTopic)
	}

	// Use-Case

	// origins use-case, with warm domain cache
	originUseCase := origins.New(originRepo, l)
	err = originUseCase.Refresh(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - originUseCase.Refresh: %w", err))
	}

	// relay use-case
	policy := schedule.Default()
	policy.MaxAttempts = cfg.Dispatcher.MaxAttempts
	relayUseCase := relay.New(
		requestRepo,
		attemptRepo,
		pg,
		originUseCase,
		policy,
		alertPublisher,
		archiveRepo,
		l,
	)

	// Dispatcher Worker
	dispatcher := dispatch.New(
		relayUseCase,
		originUseCase,
		httpdelivery.New(),
		l,
		cfg.Dispatcher.PollInterval,
		cfg.Dispatcher.RecoverInterval,
		cfg.Dispatcher.ActiveStaleAfter,
		cfg.Dispatcher.RetentionInterval,
		cfg.Dispatcher.Retention,
		cfg.Dispatcher.RetentionBatch,
		cfg.Dispatcher.Workers,
	)

	// Kafka as Controller, optional
	var kafkaController *kafkactrl.KafkaController
	if cfg.Kafka.Enabled {
		kafkaConsumer, err := consumer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.CaptureTopic)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - consumer.New: %w", err))
		}

		kafkaController = kafkactrl.New(
			relayUseCase,
			infrakafka.NewCaptureConsumer(kafkaConsumer),
			l,
			cfg.Kafka.CommitTimeout,
			cfg.Kafka.ProcessTimeout,
			runtime.NumCPU(),
		)
	}

	// HTTP Servers

	// ingest, the capture surface
	ingestServer := httpserver.New(l,
		httpserver.Name("ingest"),
		httpserver.Port(cfg.HTTP.IngestPort),
		httpserver.Prefork(cfg.HTTP.UsePreforkMode),
	)
	ingest.NewRouter(ingestServer.App, relayUseCase, l)

	// management
	mgmtServer := httpserver.New(l,
		httpserver.Name("mgmt"),
		httpserver.Port(cfg.HTTP.MgmtPort),
	)
	restapi.NewRouter(mgmtServer.App, cfg, relayUseCase, originUseCase, l)

	// Start Components
	err = dispatcher.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - dispatcher.Start: %w", err))
	}
	if kafkaController != nil {
		err = kafkaController.Start(ctx)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - kafkaController.Start: %w", err))
		}
	}
	ingestServer.Start()
	mgmtServer.Start()

	// Waiting Signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: %s", s.String())
	case err = <-ingestServer.Notify():
		l.Error(fmt.Errorf("app - Run - ingestServer.Notify: %w", err))
	case err = <-mgmtServer.Notify():
		l.Error(fmt.Errorf("app - Run - mgmtServer.Notify: %w", err))
	}

	// Shutdown
	err = ingestServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - ingestServer.Shutdown: %w", err))
	}
	err = mgmtServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - mgmtServer.Shutdown: %w", err))
	}

	dspShutdownCtx, dspShutdownCancel := context.WithTimeout(ctx, cfg.Dispatcher.ShutdownTimeout)
	defer dspShutdownCancel()
	err = dispatcher.Shutdown(dspShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - dispatcher.Shutdown: %w", err))
	}

	if kafkaController != nil {
		kcShutdownCtx, kcShutdownCancel := context.WithTimeout(ctx, cfg.Kafka.ShutdownTimeout)
		defer kcShutdownCancel()
		err = kafkaController.Shutdown(kcShutdownCtx)
		if err != nil {
			l.Error(fmt.Errorf("app - Run - kafkaController.Shutdown: %w", err))
		}
	}

	if kafkaProducer != nil {
		err = kafkaProducer.Close()
		if err != nil {
			l.Error(fmt.Errorf("app - Run - kafkaProducer.Close: %w", err))
		}
	}
}
