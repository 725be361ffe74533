// Package membershipledger собирает HTTP-приложение портала: хранилище,
// кеш, брокер событий, сервисы и маршруты.
package membershipledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/membership-ledger/internal/cache"
	"github.com/magabrotheeeer/membership-ledger/internal/config"
	"github.com/magabrotheeeer/membership-ledger/internal/lib/jwt"
	"github.com/magabrotheeeer/membership-ledger/internal/migrations"
	"github.com/magabrotheeeer/membership-ledger/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/membership-ledger/internal/services/auth"
	billingservice "github.com/magabrotheeeer/membership-ledger/internal/services/billing"
	catalogservice "github.com/magabrotheeeer/membership-ledger/internal/services/catalog"
	entitlementservice "github.com/magabrotheeeer/membership-ledger/internal/services/entitlement"
	"github.com/magabrotheeeer/membership-ledger/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и внешние соединения приложения.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// New создает приложение: подключает PostgreSQL, применяет миграции,
// поднимает redis и AMQP-канал публикации событий, собирает сервисы
// и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.AddressRabbitMQ, cfg.ConnectRetries, cfg.ConnectDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.DirectoryExchange, rabbitmq.GetDirectoryQueues())
	if err != nil {
		return nil, err
	}
	publisher := &rabbitmq.ChannelPublisher{Ch: ch}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.NewAuthService(db, jwtMaker)
	catalogService := catalogservice.NewCatalogService(db, cacheRedis, logger)
	entitlementService := entitlementservice.NewEntitlementService(db, cacheRedis, publisher, logger)
	billingService := billingservice.NewBillingService(db, entitlementService, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg,
		authService, catalogService, billingService, entitlementService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: conn,
	}, nil
}

// Run запускает HTTP-сервер и корректно останавливает его при отмене
// контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		a.amqpConn.Close()
		return err
	}
}
