package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/device"
	"github.com/custodia-labs/docchat/internal/adapters/driven/indexer"
	"github.com/custodia-labs/docchat/internal/adapters/driven/notify/kafka"
	"github.com/custodia-labs/docchat/internal/adapters/driven/notify/webhook"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/kv"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
)

// startupTimeout bounds connecting to the storage backend and the
// startup orphan sweep.
const startupTimeout = 10 * time.Second

// bootstrap wires every adapter and service from the settings file.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	cfgStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	settings := services.NewSettings(cfgStore)
	app := settings.Get()
	logger.SetFormat(app.LogFormat)

	if opts.SettingsOnly {
		return &cli.Services{Settings: settings}, func() {}, nil
	}

	if opts.Storage != "" {
		backend := domain.StorageBackend(opts.Storage)
		if !backend.IsValid() {
			return nil, nil, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, opts.Storage)
		}
		app.Storage.Backend = backend
	}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	store, err := openRecordStore(startCtx, app.Storage)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing store: %v", err)
		}
	}

	svcs, err := wireServices(startCtx, store, settings, app)
	if err != nil {
		release()
		return nil, nil, err
	}
	return svcs, release, nil
}

// wireServices builds the core services over store.
func wireServices(
	ctx context.Context,
	store driven.RecordStore,
	settings *services.Settings,
	app domain.AppSettings,
) (*cli.Services, error) {
	remote, err := indexer.New(indexer.Config{
		BaseURL:   app.Server.BaseURL,
		Token:     app.Server.Token,
		Timeout:   app.Server.Timeout,
		RateLimit: app.Server.RateLimit,
		Burst:     app.Server.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring indexing service: %w", err)
	}

	files := services.NewFileLedger(store, device.NewInspector())
	conversation := services.NewConversationLedger(store)
	reconciler := services.NewReconciler(files, remote, app.Server.UserID, app.Server.Timeout)
	attachments := services.NewAttachments(files, conversation, reconciler, remote)
	conversations := services.NewConversations(files, conversation, remote, app.Server.UserID)
	retention := services.NewRetentionSweeper(conversation, store, app.Retention)

	// Batches interrupted by a crash leave unindexed records behind.
	// Only those past the staging lifetime are collected, so uploads running
	// in another process are not disturbed.
	if n, err := attachments.SweepOrphans(ctx, app.StagingMaxAge); err != nil {
		logger.Warn("startup orphan sweep failed: %v", err)
	} else if n > 0 {
		logger.Info("discarded %d orphaned staging records", n)
	}

	var scheduler driving.Scheduler
	if app.SchedulerEnabled {
		scheduler = services.NewScheduler(
			settings.SchedulerConfig(),
			kv.NewSchedulerStore(store),
			retention,
			attachments,
			app.StagingMaxAge,
		)
	}

	return &cli.Services{
		Attachments:   attachments,
		Conversations: conversations,
		Retention:     retention,
		Scheduler:     scheduler,
		SummaryListener: &deferredListener{
			router: services.NewSummaryRouter(files, conversation),
			cfg:    app.Notifications,
		},
		Settings: settings,
		NewWatcher: func(dir, workspaceID string) cli.DirectoryWatcher {
			return device.NewWatcher(dir, workspaceID, attachments)
		},
	}, nil
}

// openRecordStore opens the configured storage backend.
func openRecordStore(ctx context.Context, cfg domain.StorageSettings) (driven.RecordStore, error) {
	switch cfg.Backend {
	case domain.StorageSQLite:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil
	case domain.StorageRedis:
		store, err := redis.NewRecordStore(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case domain.StorageMemory:
		logger.Warn("memory storage: attachments and chats are lost on exit")
		return memory.NewRecordStore(), nil
	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}

// newNotificationSource opens the configured summary transport.
func newNotificationSource(cfg domain.NotificationSettings) (driven.NotificationSource, error) {
	switch cfg.Transport {
	case domain.NotifyWebhook:
		return webhook.NewSource(cfg.ListenAddr), nil
	case domain.NotifyKafka:
		return kafka.NewSource(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		})
	default:
		return nil, fmt.Errorf("%w: notification transport %q", domain.ErrInvalidInput, cfg.Transport)
	}
}

// deferredListener opens its notification source on Run, so commands that
// never listen do not join a consumer group or bind a port.
type deferredListener struct {
	router *services.SummaryRouter
	cfg    domain.NotificationSettings
}

func (l *deferredListener) Run(ctx context.Context) error {
	if l.router == nil {
		return errors.New("summary router not configured")
	}
	src, err := newNotificationSource(l.cfg)
	if err != nil {
		return err
	}
	logger.Info("listening for summaries via %s", l.cfg.Transport)
	return services.NewSummaryListener(l.router, src).Run(ctx)
}
