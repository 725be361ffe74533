// Package expirynotifier собирает приложение уведомлений: планировщик,
// публикующий события об истекающем завтра членстве, и почтовый отправитель,
// потребляющий их.
package expirynotifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/membership-ledger/internal/config"
	"github.com/magabrotheeeer/membership-ledger/internal/lib/smtp"
	"github.com/magabrotheeeer/membership-ledger/internal/rabbitmq"
	notifierservice "github.com/magabrotheeeer/membership-ledger/internal/services/notifier"
	"github.com/magabrotheeeer/membership-ledger/internal/storage/repository"
)

// App представляет приложение уведомлений об истекающем членстве.
type App struct {
	schedulerService *notifierservice.SchedulerService
	senderService    *notifierservice.SenderService
	conn             *amqp.Connection
	ch               *amqp.Channel
	db               *repository.Storage
	logger           *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.AddressRabbitMQ, cfg.ConnectRetries, cfg.ConnectDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationsExchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	publisher := &rabbitmq.ChannelPublisher{Ch: ch}
	schedulerService := notifierservice.NewSchedulerService(db, publisher, logger)

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := notifierservice.NewSenderService(transport, logger)

	return &App{
		schedulerService: schedulerService,
		senderService:    senderService,
		conn:             conn,
		ch:               ch,
		db:               db,
		logger:           logger,
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

// Run запускает планировщик и потребителя уведомлений.
func (a *App) Run(ctx context.Context) error {
	go a.schedulerService.Run(ctx)

	err := rabbitmq.ConsumeMessages(ctx, a.ch, "notification.expiring", a.senderService.SendExpiryNotice)
	if err != nil {
		a.logger.Error("failed to start notification.expiring consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutting down expiry-notifier service")

	closeResources(a.ch, a.conn, a.logger)
	a.db.DB.Close()
	return nil
}
