// Package services реализует уведомления об истекающем членстве:
// планировщик находит пользователей с истекающим завтра членством и
// публикует события, отправитель превращает их в письма.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/membership-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/membership-ledger/internal/models"
	"github.com/magabrotheeeer/membership-ledger/internal/rabbitmq"
)

// SnapshotRepository определяет запросы к снимкам прав.
type SnapshotRepository interface {
	FindMembershipsExpiringTomorrow(ctx context.Context) ([]*models.ExpiryNotice, error)
}

// Publisher публикует события в брокер сообщений.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// SchedulerService периодически ищет истекающие членства.
type SchedulerService struct {
	repo      SnapshotRepository
	publisher Publisher
	log       *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo SnapshotRepository, publisher Publisher, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Run выполняет поиск сразу и затем каждые 12 часов, пока не отменен контекст.
func (s *SchedulerService) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce находит пользователей с истекающим завтра членством и публикует
// уведомление по каждому.
func (s *SchedulerService) RunOnce(ctx context.Context) {
	s.log.Info("looking for memberships expiring tomorrow")
	notices, err := s.repo.FindMembershipsExpiringTomorrow(ctx)
	if err != nil {
		s.log.Error("failed to find expiring memberships", sl.Err(err))
		return
	}
	if len(notices) == 0 {
		s.log.Info("no expiring memberships found")
		return
	}
	s.log.Info("found expiring memberships", slog.Int("count", len(notices)))
	for _, notice := range notices {
		if err := s.publisher.Publish(rabbitmq.NotificationsExchange, "membership.expiring", notice); err != nil {
			s.log.Error("failed to publish expiry notice", sl.Err(err))
		}
	}
}
