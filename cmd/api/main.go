// Package main is the entrypoint for the mailcourier read API.
//
// The API exposes email record lookups, delivery statistics, a manual
// retry trigger for stale FAILED records, and the health endpoint. It
// wires the same delivery chain as the worker so that a manual retry
// delivers through the identical claim/send/persist path, but it runs
// neither the queue consumer nor the periodic resweep loop.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailcourier/internal/api"
	"mailcourier/internal/config"
	"mailcourier/internal/db"
	"mailcourier/internal/dispatch"
	"mailcourier/internal/mail"
	"mailcourier/internal/metrics"
	"mailcourier/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
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

// dbProbe reports database health by pinging the connection pool.
type dbProbe struct {
	pool *pgxpool.Pool
}

func (p *dbProbe) Name() string                    { return "database" }
func (p *dbProbe) Check(ctx context.Context) error { return p.pool.Ping(ctx) }

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

	endpointOverride := cfg.AWS.EndpointURL
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

	resweeper := dispatch.NewResweeper(dispatch.ResweeperConfig{
		Store:      repo,
		Executor:   executor,
		Metrics:    recorder,
		Logger:     typedLogger,
		Interval:   cfg.Resweep.Interval,
		CutoffAge:  cfg.Resweep.CutoffAge,
		BatchLimit: cfg.Resweep.BatchLimit,
	})

	server, err := api.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize API server", "error", err)
		os.Exit(1)
	}
	server.HealthProbes = []api.HealthProbe{&dbProbe{pool: pool}}
	server.MountRoutes(api.NewEmailHandler(repo, resweeper, logger))

	httpServer := &http.Server{
		Addr:    net.JoinHostPort("", cfg.Server.Port),
		Handler: server.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
	}()

	logger.Info("mailcourier API listening",
		"port", cfg.Server.Port,
		"environment", cfg.Environment,
	)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server terminated with error", "error", err)
		os.Exit(1)
	}

	logger.Info("mailcourier API stopped")
}
