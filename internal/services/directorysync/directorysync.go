// Package services поддерживает каталог доступа к сети в актуальном
// состоянии: потребляет события пересчета прав и выставляет ключи доступа,
// которые читает сторона авторизации подключений.
//
// Это явная, проверяемая замена синхронизации по сигналам сохранения:
// триггером служит опубликованное событие, а не побочный эффект записи.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/membership-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// AccessStore хранит ключи доступа пользователей.
type AccessStore interface {
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// DirectorySyncService применяет события пересчета прав к каталогу доступа.
type DirectorySyncService struct {
	store AccessStore
	log   *slog.Logger
	now   func() time.Time
}

// NewDirectorySyncService создает новый экземпляр DirectorySyncService.
func NewDirectorySyncService(store AccessStore, log *slog.Logger) *DirectorySyncService {
	return &DirectorySyncService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// WithClock подменяет источник текущего времени; используется в тестах.
func (s *DirectorySyncService) WithClock(now func() time.Time) *DirectorySyncService {
	s.now = now
	return s
}

// HandleEntitlementUpdated обрабатывает событие пересчета прав: при
// действующем доступе выставляет ключ access:<username> с временем жизни
// до даты истечения, иначе удаляет ключ.
func (s *DirectorySyncService) HandleEntitlementUpdated(body []byte) error {
	var event models.EntitlementUpdated
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal entitlement event", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	key := fmt.Sprintf("access:%s", event.Username)
	now := s.now()

	if event.ConnectionEnd == nil || !now.Before(*event.ConnectionEnd) {
		if err := s.store.Invalidate(key); err != nil {
			s.log.Error("failed to revoke access key", slog.String("key", key), sl.Err(err))
			return err
		}
		s.log.Info("network access revoked", slog.String("username", event.Username))
		return nil
	}

	ttl := event.ConnectionEnd.Sub(now)
	if err := s.store.Set(key, event.ConnectionEnd, ttl); err != nil {
		s.log.Error("failed to set access key", slog.String("key", key), sl.Err(err))
		return err
	}
	s.log.Info("network access granted",
		slog.String("username", event.Username),
		slog.Time("until", *event.ConnectionEnd))
	return nil
}
