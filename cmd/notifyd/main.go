package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinikit/notify/pkg/config"
	"github.com/clinikit/notify/pkg/delivery"
	"github.com/clinikit/notify/pkg/dispatch"
	"github.com/clinikit/notify/pkg/logger"
	"github.com/clinikit/notify/pkg/mongo"
	"github.com/clinikit/notify/pkg/notification"
	"github.com/clinikit/notify/pkg/preferences"
	"github.com/clinikit/notify/pkg/queue"
	"github.com/clinikit/notify/pkg/redis"
	"github.com/clinikit/notify/pkg/reminder"
)

// appConfig toggles the optional integrations. Provider credentials are
// loaded per provider only when the toggle is on, so a deployment
// without SMS does not need SMS secrets in its environment.
type appConfig struct {
	EmailEnabled    bool `env:"EMAIL_ENABLED" envDefault:"false"`
	SMSEnabled      bool `env:"SMS_ENABLED" envDefault:"false"`
	WhatsAppEnabled bool `env:"WHATSAPP_ENABLED" envDefault:"false"`
	PushEnabled     bool `env:"PUSH_ENABLED" envDefault:"false"`
	RedisEnabled    bool `env:"REDIS_ENABLED" envDefault:"false"`

	RetrySweepInterval time.Duration `env:"RETRY_SWEEP_INTERVAL" envDefault:"5m"`
	ScheduledInterval  time.Duration `env:"SCHEDULED_SWEEP_INTERVAL" envDefault:"1m"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.New(logger.WithConfig(logCfg))
	logger.SetAsDefault(log)

	if err := run(log); err != nil {
		log.Error("notifyd exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	var mongoCfg mongo.Config
	config.MustLoad(&mongoCfg)
	db, err := mongo.ConnectDatabase(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
		defer cancel()
		_ = db.Client().Disconnect(shutdownCtx)
	}()
	log.Info("connected to mongodb", slog.String("database", mongoCfg.Database))

	providers, err := buildProviders(ctx, appCfg, log)
	if err != nil {
		return err
	}

	records := notification.NewMongoStorage(db)
	resolver := preferences.NewResolver(
		preferences.NewMongoStorage(db),
		preferences.WithResolverLogger(log),
	)
	dispatcher := dispatch.NewDispatcher(providers, dispatch.WithDispatcherLogger(log))

	var deliveryCfg delivery.Config
	config.MustLoad(&deliveryCfg)

	svc, err := delivery.New(records, resolver, dispatcher,
		delivery.WithConfig(deliveryCfg),
		delivery.WithLogger(log),
	)
	if err != nil {
		return err
	}

	var queueCfg queue.Config
	config.MustLoad(&queueCfg)
	retryQueue, err := queue.New(svc,
		queue.WithConfig(queueCfg),
		queue.WithLogger(log),
	)
	if err != nil {
		return err
	}
	svc.AttachQueue(retryQueue)

	var reminderCfg reminder.Config
	config.MustLoad(&reminderCfg)
	scheduler, err := reminder.NewScheduler(svc, resolver,
		reminder.NewMongoAppointmentSource(db),
		reminder.WithBookingSource(reminder.NewMongoBookingSource(db)),
		reminder.WithConfig(reminderCfg),
		reminder.WithLogger(log),
	)
	if err != nil {
		return err
	}

	if err := retryQueue.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = retryQueue.Stop() }()

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = scheduler.Stop() }()

	go runSweeps(ctx, svc, appCfg, log)

	log.Info("notifyd started")
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// runSweeps drives the storage-backed maintenance loops: dispatching
// scheduled records that became due and recovering failed records into
// the retry queue after a restart.
func runSweeps(ctx context.Context, svc *delivery.Service, cfg appConfig, log *slog.Logger) {
	scheduled := time.NewTicker(cfg.ScheduledInterval)
	defer scheduled.Stop()
	retry := time.NewTicker(cfg.RetrySweepInterval)
	defer retry.Stop()

	// Recover records that were failed when the previous process died.
	if n, err := svc.RetryFailed(ctx); err != nil {
		log.Warn("startup retry sweep failed", slog.String("error", err.Error()))
	} else if n > 0 {
		log.Info("recovered failed notifications", slog.Int("count", n))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-scheduled.C:
			if res, err := svc.ProcessScheduled(ctx); err != nil {
				log.Warn("scheduled sweep failed", slog.String("error", err.Error()))
			} else if res.Processed > 0 || res.Failed > 0 {
				log.Info("scheduled sweep finished",
					slog.Int("processed", res.Processed),
					slog.Int("failed", res.Failed))
			}
		case <-retry.C:
			if n, err := svc.RetryFailed(ctx); err != nil {
				log.Warn("retry sweep failed", slog.String("error", err.Error()))
			} else if n > 0 {
				log.Info("re-enqueued failed notifications", slog.Int("count", n))
			}
		}
	}
}

func buildProviders(ctx context.Context, cfg appConfig, log *slog.Logger) ([]dispatch.Provider, error) {
	var providers []dispatch.Provider

	inAppOpts := []dispatch.InAppOption{dispatch.WithInAppLogger(log)}
	if cfg.RedisEnabled {
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		inAppOpts = append(inAppOpts, dispatch.WithRealtimePublisher(client))
		log.Info("in-app realtime publishing enabled")
	}
	providers = append(providers, dispatch.NewInAppProvider(inAppOpts...))

	if cfg.EmailEnabled {
		var emailCfg dispatch.EmailConfig
		config.MustLoad(&emailCfg)
		p, err := dispatch.NewEmailProvider(emailCfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.SMSEnabled {
		var smsCfg dispatch.SMSConfig
		config.MustLoad(&smsCfg)
		p, err := dispatch.NewSMSProvider(smsCfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.WhatsAppEnabled {
		var waCfg dispatch.WhatsAppConfig
		config.MustLoad(&waCfg)
		p, err := dispatch.NewWhatsAppProvider(waCfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.PushEnabled {
		var pushCfg dispatch.PushConfig
		config.MustLoad(&pushCfg)
		p, err := dispatch.NewPushProvider(ctx, pushCfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	enabled := make([]string, 0, len(providers))
	for _, p := range providers {
		enabled = append(enabled, string(p.Channel()))
	}
	log.Info("channel providers configured", slog.Any("channels", enabled))

	return providers, nil
}
