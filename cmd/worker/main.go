// Package main is the entrypoint for the mailcourier worker.
//
// The worker long-polls the order-events SQS queue, validates incoming
// order events, creates idempotent email records, and delivers them via
// SES through the bounded-retry executor. Alongside intake it runs the
// resweep scheduler, which periodically re-attempts stale FAILED records.
//
// Startup sequence:
//  1. Initialize structured logger.
//  2. Load configuration (env + dotenv, fail fast on invalid values).
//  3. Connect the pgx pool and verify with a ping.
//  4. Load AWS SDK configuration; initialize SQS, SES, CloudWatch clients.
//  5. Build sender chain (disabled/mock/circuit-broken SES), executor,
//     coordinator, consumer, and resweeper.
//  6. Run consumer and resweeper under an errgroup until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/sync/errgroup"

	"mailcourier/internal/config"
	"mailcourier/internal/db"
	"mailcourier/internal/dispatch"
	"mailcourier/internal/intake"
	"mailcourier/internal/mail"
	"mailcourier/internal/metrics"
	"mailcourier/internal/types"
)

// drainTimeout bounds how long shutdown waits for in-flight deliveries.
const drainTimeout = 30 * time.Second

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
// slog.Logger satisfies Info, Error, and Warn directly but With returns
// *slog.Logger, not types.Logger, so an adapter is necessary.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	typedLogger := &slogAdapter{logger: logger}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	// LocalStack support: point every AWS client at the override endpoint.
	endpointOverride := cfg.AWS.EndpointURL
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpointOverride != "" {
			o.BaseEndpoint = aws.String(endpointOverride)
		}
	})
	sesClient := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if endpointOverride != "" {
			o.BaseEndpoint = aws.String(endpointOverride)
		}
	})
	cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if endpointOverride != "" {
			o.BaseEndpoint = aws.String(endpointOverride)
		}
	})

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		recorder = metrics.NewCloudWatchRecorder(cwClient, cfg.Metrics.Namespace, typedLogger)
	}

	repo := db.NewEmailRepository(pool)

	sesSender := mail.NewSESSenderWithAPI(sesClient, mail.SESSenderConfig{
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		Logger:      typedLogger,
	})
	sender := mail.NewSender(cfg.Email, sesSender, typedLogger)

	executor := dispatch.NewExecutor(dispatch.ExecutorConfig{
		Store:   repo,
		Sender:  sender,
		Metrics: recorder,
		Logger:  typedLogger,
		Policy: dispatch.Policy{
			MaxAttempts: cfg.Delivery.MaxAttempts,
			Backoff:     cfg.Delivery.Backoff,
			SendTimeout: cfg.Delivery.SendTimeout,
		},
		PoolSize: cfg.Delivery.PoolSize,
	})

	coordinator := dispatch.NewCoordinator(dispatch.CoordinatorConfig{
		Store:    repo,
		Executor: executor,
		Logger:   typedLogger,
	})

	validator, err := intake.NewEventValidator()
	if err != nil {
		logger.Error("failed to initialize event validator", "error", err)
		os.Exit(1)
	}

	consumer := intake.NewConsumer(intake.ConsumerConfig{
		Client:    sqsClient,
		QueueURL:  cfg.AWS.OrderEventsQueue,
		Validator: validator,
		Handler:   coordinator,
		Metrics:   recorder,
		Logger:    typedLogger,
	})

	resweeper := dispatch.NewResweeper(dispatch.ResweeperConfig{
		Store:      repo,
		Executor:   executor,
		Metrics:    recorder,
		Logger:     typedLogger,
		Interval:   cfg.Resweep.Interval,
		CutoffAge:  cfg.Resweep.CutoffAge,
		BatchLimit: cfg.Resweep.BatchLimit,
	})

	logger.Info("mailcourier worker starting",
		"environment", cfg.Environment,
		"queue_url", cfg.AWS.OrderEventsQueue,
		"email_enabled", cfg.Email.Enabled,
		"email_mock", cfg.Email.Mock,
		"pool_size", cfg.Delivery.PoolSize,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		return resweeper.Run(gctx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker terminated with error", "error", err)
	}

	// Intake has stopped; give in-flight deliveries a chance to finish so
	// their state transitions are persisted.
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := executor.Drain(drainCtx); err != nil {
		logger.Warn("shutdown drain timed out with deliveries in flight", "error", err)
	}

	logger.Info("mailcourier worker stopped")
}
