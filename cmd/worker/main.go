package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/simple-todo/internal/config"
	"github.com/benvon/simple-todo/internal/logger"
	"github.com/benvon/simple-todo/internal/queue"
	"github.com/benvon/simple-todo/internal/workers"
	"go.uber.org/zap"
)

const (
	dlqGCInterval  = time.Hour
	dlqGCRetention = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.RabbitMQURL == "" {
		log.Fatal("RABBITMQ_URL is required for the worker")
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	eventQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := eventQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditor := workers.NewAuditor(workers.NewLogSink(zapLogger.Named("audit")), eventQueue, zapLogger)

	gc := queue.NewGarbageCollector(eventQueue, dlqGCInterval, dlqGCRetention, zapLogger)
	go func() {
		if err := gc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_dlq_garbage_collector",
		zap.Duration("interval", dlqGCInterval),
		zap.Duration("retention", dlqGCRetention),
	)

	msgChan, errChan, err := eventQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}
	zapLogger.Info("worker_started")

	go func() {
		for err := range errChan {
			zapLogger.Error("queue_error", zap.Error(err))
		}
	}()

	for msg := range msgChan {
		if err := auditor.ProcessMessage(ctx, msg); err != nil {
			zapLogger.Warn("failed_to_process_event",
				zap.String("event_id", msg.GetEvent().ID.String()),
				zap.String("event_type", string(msg.GetEvent().Type)),
				zap.Error(err),
			)
		}
	}

	if ctx.Err() == nil {
		zapLogger.Error("delivery_stream_ended")
	}
	zapLogger.Info("worker_stopped",
		zap.Any("recorded", auditor.Counts()),
		zap.Int64("dlq_purged", gc.Purged()),
	)
}
