// Server runs the pipeline-facing gRPC API and the HTTP listener for chat webhooks and the admin API.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"otp-relay/internal/audit"
	audithandler "otp-relay/internal/audit/handler"
	auditrepo "otp-relay/internal/audit/repository"
	"otp-relay/internal/config"
	"otp-relay/internal/correlator"
	"otp-relay/internal/db"
	"otp-relay/internal/linker"
	linkerrepo "otp-relay/internal/linker/repository"
	"otp-relay/internal/logging"
	otprepo "otp-relay/internal/otp/repository"
	otpservice "otp-relay/internal/otp/service"
	"otp-relay/internal/policy/engine"
	projecthandler "otp-relay/internal/project/handler"
	projectrepo "otp-relay/internal/project/repository"
	"otp-relay/internal/responder"
	"otp-relay/internal/responder/feishu"
	responderrepo "otp-relay/internal/responder/repository"
	"otp-relay/internal/responder/slack"
	"otp-relay/internal/security"
	"otp-relay/internal/server"
	"otp-relay/internal/server/interceptors"
	"otp-relay/internal/telemetry"
	telemetryotel "otp-relay/internal/telemetry/otel"
	"otp-relay/internal/telemetry/producer"
	"otp-relay/internal/webhook"
)

const shutdownTimeout = 10 * time.Second

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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
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

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "otp-relay", cfg.OTLPInsecure)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic)
	if err != nil {
		return err
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitters = append(emitters, kafkaProducer)
		logger.Info("lifecycle events mirrored to kafka", zap.String("topic", cfg.EventsKafkaTopic))
	}
	events := telemetry.Multi(emitters...)

	policy, err := engine.LoadOPAEvaluator(ctx, cfg.ResponderPolicyFile)
	if err != nil {
		return err
	}

	tokens, err := operatorTokens(cfg)
	if err != nil {
		return err
	}

	projects := projectrepo.NewPostgresRepository(conn)
	requests := otprepo.NewPostgresRepository(conn)
	responders := responderrepo.NewPostgresRepository(conn)
	auditLogs := auditrepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(auditLogs, interceptors.ClientIP, logger.Named("audit"))
	hasher := security.NewHasher(cfg.BcryptCost)

	feishuResponder := feishu.New(feishu.Config{
		AppID:     cfg.FeishuAppID,
		AppSecret: cfg.FeishuAppSecret,
		BaseURL:   cfg.FeishuBaseURL,
	}, responders, requests, logger)
	registry := responder.NewRegistry(
		slack.New(responders, requests, logger, slack.WithAPIURL(cfg.SlackAPIURL)),
		feishuResponder,
	)

	otp, err := otpservice.NewService(requests, projects, registry, policy, auditLogger, events, logger, cfg.RequestTTL())
	if err != nil {
		return err
	}
	linkers := linker.NewService(linkerrepo.NewPostgresRepository(conn), projects, auditLogger, events, logger, cfg.LinkTTL())

	hooks := webhook.NewHandler(correlator.New(linkers, otp, logger), responders, feishuResponder, webhook.Config{
		SlackSigningSecret:      cfg.SlackSigningSecret,
		FeishuVerificationToken: cfg.FeishuVerificationToken,
	}, logger)

	httpDeps := server.HTTPDeps{
		Webhooks: hooks,
		Admin: []server.Mounter{
			projecthandler.NewHandler(projects, responders, linkers, hasher, auditLogger, logger),
			audithandler.NewHandler(auditLogs, logger),
		},
		Pinger: conn,
		Logger: logger,
	}
	if tokens != nil {
		httpDeps.Tokens = tokens
	} else {
		logger.Warn("JWT_PUBLIC_KEY not set; admin API disabled")
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(httpDeps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := server.NewGRPCServer(server.Deps{
		OTP:                 otp,
		Projects:            projects,
		Secrets:             hasher,
		Audit:               auditLogger,
		Events:              events,
		HealthPinger:        conn,
		HealthPolicyChecker: policy,
		Logger:              logger,
	})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})
	err = g.Wait()

	// Let pending lifecycle events reach Kafka and OTel before the deferred closes run.
	drainCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
	defer cancel()
	if derr := telemetry.Drain(drainCtx); derr != nil {
		logger.Warn("telemetry drain", zap.Error(derr))
	}
	return err
}

// operatorTokens returns a verify-only token provider, or nil when no public key is configured.
func operatorTokens(cfg *config.Config) (*security.TokenProvider, error) {
	if cfg.JWTPublicKey == "" {
		return nil, nil
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		return nil, err
	}
	return security.NewTokenProvider(nil, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
}
