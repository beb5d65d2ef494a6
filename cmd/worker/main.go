// Worker expires overdue OTP requests and stale link tokens every SWEEP_INTERVAL. When
// KAFKA_BROKERS and LOKI_URL are both set it also forwards lifecycle events from Kafka to Loki.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"otp-relay/internal/config"
	"otp-relay/internal/db"
	"otp-relay/internal/linker"
	linkerrepo "otp-relay/internal/linker/repository"
	"otp-relay/internal/logging"
	otprepo "otp-relay/internal/otp/repository"
	otpservice "otp-relay/internal/otp/service"
	projectrepo "otp-relay/internal/project/repository"
	"otp-relay/internal/responder"
	"otp-relay/internal/sweeper"
	"otp-relay/internal/telemetry"
	"otp-relay/internal/telemetry/loki"
	"otp-relay/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger.Named("worker")); err != nil {
		logger.Fatal("worker exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	var events telemetry.EventEmitter
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic)
	if err != nil {
		return err
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		events = kafkaProducer
	}

	projects := projectrepo.NewPostgresRepository(conn)
	// Expiry never sends a card, so no responders are registered.
	otp, err := otpservice.NewService(otprepo.NewPostgresRepository(conn), projects, responder.NewRegistry(),
		nil, nil, events, logger, cfg.RequestTTL())
	if err != nil {
		return err
	}
	linkers := linker.NewService(linkerrepo.NewPostgresRepository(conn), projects, nil, nil, logger, cfg.LinkTTL())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("sweeping", zap.Duration("interval", cfg.SweepEvery()))
		return sweeper.New(otp, linkers, cfg.SweepEvery(), logger).Run(gctx)
	})

	brokers := cfg.KafkaBrokersList()
	if len(brokers) > 0 && cfg.LokiURL != "" {
		client, err := loki.NewClient(cfg.LokiURL, nil)
		if err != nil {
			return err
		}
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          cfg.EventsKafkaTopic,
			GroupID:        cfg.KafkaGroupID,
			MinBytes:       1,
			MaxBytes:       10e6, // 10MB
			MaxWait:        time.Second,
			CommitInterval: time.Second,
		})
		defer reader.Close()
		g.Go(func() error {
			logger.Info("forwarding events",
				zap.String("topic", cfg.EventsKafkaTopic), zap.String("group", cfg.KafkaGroupID), zap.String("loki", cfg.LokiURL))
			return loki.Forward(gctx, reader, client, logger)
		})
	}

	err = g.Wait()
	logger.Info("stopped")
	return err
}
