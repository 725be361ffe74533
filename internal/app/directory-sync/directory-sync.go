// Package directorysync собирает приложение синхронизации каталога доступа:
// потребитель событий пересчета прав, обновляющий ключи доступа в redis.
package directorysync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/membership-ledger/internal/cache"
	"github.com/magabrotheeeer/membership-ledger/internal/config"
	"github.com/magabrotheeeer/membership-ledger/internal/rabbitmq"
	syncservice "github.com/magabrotheeeer/membership-ledger/internal/services/directorysync"
)

// App представляет приложение синхронизации каталога доступа.
type App struct {
	syncService *syncservice.DirectorySyncService
	conn        *amqp.Connection
	ch          *amqp.Channel
	logger      *slog.Logger
}

// New создает новый экземпляр приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.AddressRabbitMQ, cfg.ConnectRetries, cfg.ConnectDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.DirectoryExchange, rabbitmq.GetDirectoryQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	syncService := syncservice.NewDirectorySyncService(cacheRedis, logger)

	return &App{
		syncService: syncService,
		conn:        conn,
		ch:          ch,
		logger:      logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", slog.Any("err", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", slog.Any("err", err))
		}
	}
}

// Run запускает потребителя событий и ждет отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumeMessages(ctx, a.ch, "directory.entitlement", a.syncService.HandleEntitlementUpdated)
	if err != nil {
		a.logger.Error("failed to start directory.entitlement consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutting down directory-sync service")

	closeResources(a.ch, a.conn, a.logger)
	return nil
}
