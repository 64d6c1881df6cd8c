// Package main wires together the document pusher service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/api"
	"github.com/cnyeig/hydocpusher/internal/clock/system"
	"github.com/cnyeig/hydocpusher/internal/config"
	"github.com/cnyeig/hydocpusher/internal/delivery"
	"github.com/cnyeig/hydocpusher/internal/logging"
	"github.com/cnyeig/hydocpusher/internal/metrics"
	"github.com/cnyeig/hydocpusher/internal/pipeline"
	"github.com/cnyeig/hydocpusher/internal/pusher"
	queuememory "github.com/cnyeig/hydocpusher/internal/queue/memory"
	queuepubsub "github.com/cnyeig/hydocpusher/internal/queue/pubsub"
	sinkmemory "github.com/cnyeig/hydocpusher/internal/sink/memory"
	sinkpubsub "github.com/cnyeig/hydocpusher/internal/sink/pubsub"
	"github.com/cnyeig/hydocpusher/internal/transform"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	clock := system.New()

	var consumer pusher.Consumer
	var sink pusher.DeadLetterSink
	switch cfg.Queue.Provider {
	case "pubsub":
		pc, err := queuepubsub.NewConsumer(ctx, cfg.Queue.ProjectID, cfg.Queue.SubscriptionID, cfg.Pipeline.Workers, logger.Named("queue"))
		if err != nil {
			logger.Fatal("pubsub consumer init failed", zap.Error(err))
		}
		defer closeQuietly(pc.Close, "pubsub consumer", logger)
		ps, err := sinkpubsub.NewSink(ctx, cfg.Queue.ProjectID, cfg.Queue.DeadLetterTopic, logger.Named("sink"))
		if err != nil {
			logger.Fatal("dead-letter sink init failed", zap.Error(err))
		}
		defer closeQuietly(ps.Close, "dead-letter sink", logger)
		consumer, sink = pc, ps
	default:
		mc := queuememory.NewConsumer(1024, cfg.Pipeline.Workers)
		defer closeQuietly(mc.Close, "memory consumer", logger)
		consumer, sink = mc, sinkmemory.NewSink()
	}

	classifier := transform.NewClassifier(cfg.Classification, logger.Named("classify"))
	normalizer := transform.NewNormalizer(cfg.Archive.Domain, logger.Named("attachments"))
	builder := transform.NewBuilder(classifier, normalizer, cfg.Archive, clock, logger.Named("builder"))

	transport := delivery.NewHTTPTransport(cfg.Archive, logger.Named("transport"))
	breaker := delivery.NewBreaker(cfg.Archive.BreakerThreshold, cfg.Archive.BreakerOpenDuration(), clock)
	engine := delivery.NewEngine(transport, breaker, cfg.Archive, logger.Named("delivery"))

	coordinator := pipeline.NewCoordinator(builder, engine, sink, cfg.Queue.SourceTopic, clock, logger.Named("pipeline"))

	var consuming atomic.Bool
	apiServer := api.NewServer(clock, consuming.Load, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Message handlers run on workCtx, which outlives the receive
	// context by the shutdown grace period so in-flight deliveries can
	// finish before being interrupted.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	receiveDone := make(chan error, 1)
	go func() {
		consuming.Store(true)
		logger.Info("pipeline started",
			zap.String("provider", cfg.Queue.Provider),
			zap.Int("workers", cfg.Pipeline.Workers),
		)
		receiveDone <- consumer.Receive(ctx, func(_ context.Context, msg pusher.Message) {
			coordinator.Handle(workCtx, msg)
		})
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	consuming.Store(false)
	logger.Info("shutdown initiated", zap.Duration("grace", cfg.Pipeline.ShutdownGrace()))

	graceTimer := time.AfterFunc(cfg.Pipeline.ShutdownGrace(), cancelWork)
	defer graceTimer.Stop()

	if err := <-receiveDone; err != nil {
		logger.Error("consumer stopped with error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func closeQuietly(closeFn func() error, name string, logger *zap.Logger) {
	if err := closeFn(); err != nil {
		logger.Warn("close failed", zap.String("component", name), zap.Error(err))
	}
}
