package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"farah_app_echo/internal/config"
	"farah_app_echo/internal/services"
	"farah_app_echo/internal/tasks"
	"farah_app_echo/internal/telemetry"
)

const pollInterval = 5 * time.Minute

func main() {
	config.LoadEnv()
	cfg := config.Load()

	if err := telemetry.Init("worker", cfg.IsProduction()); err != nil {
		panic(err)
	}
	defer telemetry.Sync()
	logger := telemetry.Logger

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	var events services.EventPublisher = services.NopEventPublisher{}
	if cfg.KafkaBrokers != "" {
		publisher := services.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		events = publisher
	}

	deps := &tasks.Deps{
		DB:        db,
		Store:     services.NewGormBookingStore(db),
		Ledger:    services.NewGormRefundLedger(db),
		Scheduler: services.NewGormTaskScheduler(db),
		Events:    events,
		Mailer:    services.NewEmailService(),
		Whatsapp:  services.NewWahaService(),
		OpsEmail:  cfg.OpsAlertEmail,
		Logger:    logger,
	}

	tasks.DefineTasks(tasks.GlobalRegistry)
	runner := tasks.NewRunner(tasks.GlobalRegistry, deps)

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if created, err := tasks.EnsureRefundAudit(ctx, deps); err != nil {
		logger.Error("Failed to seed refund audit", zap.Error(err))
	} else if created {
		logger.Info("Scheduled recurring refund audit", zap.String("rule", tasks.RefundAuditRule))
	}

	logger.Info("Worker started", zap.Duration("interval", pollInterval))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	runner.ProcessDue(ctx)
	for {
		select {
		case <-ticker.C:
			runner.ProcessDue(ctx)
		case <-ctx.Done():
			logger.Info("Shutting down worker...")
			return
		}
	}
}
