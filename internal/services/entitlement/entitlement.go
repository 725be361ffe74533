// Package services содержит бизнес-логику пересчета и запросов прав
// пользователя: членства и доступа к сети.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/membership-ledger/internal/entitlement"
	"github.com/magabrotheeeer/membership-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/membership-ledger/internal/models"
	"github.com/magabrotheeeer/membership-ledger/internal/rabbitmq"
)

// LedgerRepository определяет методы хранилища, нужные для пересчета прав.
type LedgerRepository interface {
	// ListValidContributions возвращает покупки по действительным счетам
	// пользователя в порядке возрастания (created_at, id).
	ListValidContributions(ctx context.Context, username string) ([]*models.Purchase, error)
	// UpsertEntitlementSnapshot сохраняет результат пересчета.
	UpsertEntitlementSnapshot(ctx context.Context, state models.EntitlementState) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Publisher публикует события в брокер сообщений.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// EntitlementService пересчитывает права пользователя из его действительных
// покупок и отвечает на запросы о текущем состоянии.
type EntitlementService struct {
	repo      LedgerRepository
	cache     Cache
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEntitlementService создает новый экземпляр EntitlementService.
// publisher может быть nil, тогда события не публикуются.
func NewEntitlementService(repo LedgerRepository, cache Cache, publisher Publisher, log *slog.Logger) *EntitlementService {
	return &EntitlementService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// WithClock подменяет источник текущего времени; используется в тестах.
func (s *EntitlementService) WithClock(now func() time.Time) *EntitlementService {
	s.now = now
	return s
}

// lockFor возвращает мьютекс пользователя: пересчеты одного пользователя
// не должны выполняться параллельно, иначе чередующиеся чтения дадут
// расходящиеся итоги.
func (s *EntitlementService) lockFor(username string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[username]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[username] = lock
	}
	return lock
}

// Reconcile пересчитывает права пользователя из действительных покупок,
// сохраняет снимок, обновляет кеш и публикует событие для синхронизации
// каталога доступа. Выполняется синхронно: решения о доступе читают
// результат сразу после возврата.
func (s *EntitlementService) Reconcile(ctx context.Context, username string) (*models.EntitlementState, error) {
	lock := s.lockFor(username)
	lock.Lock()
	defer lock.Unlock()

	purchases, err := s.repo.ListValidContributions(ctx, username)
	if err != nil {
		return nil, err
	}

	membership, err := entitlement.ComputeInterval(ContributionsFor(purchases, entitlement.KindMembership))
	if err != nil {
		return nil, err
	}
	connection, err := entitlement.ComputeInterval(ContributionsFor(purchases, entitlement.KindConnection))
	if err != nil {
		return nil, err
	}

	state := models.EntitlementState{
		Username:       username,
		MembershipEnd:  intervalEnd(membership),
		ConnectionEnd:  intervalEnd(connection),
		RecalculatedAt: s.now(),
	}

	if err := s.repo.UpsertEntitlementSnapshot(ctx, state); err != nil {
		return nil, err
	}
	s.log.Info("reconciled entitlements", slog.String("username", username))

	cacheKey := fmt.Sprintf("entitlement:%s", username)
	if err := s.cache.Set(cacheKey, state, time.Hour); err != nil {
		s.log.Warn("failed to cache entitlement state", slog.String("key", cacheKey), slog.Any("err", err))
	}

	if s.publisher != nil {
		event := models.EntitlementUpdated{
			Username:      username,
			MembershipEnd: state.MembershipEnd,
			ConnectionEnd: state.ConnectionEnd,
		}
		if err := s.publisher.Publish(rabbitmq.DirectoryExchange, "entitlement.updated", event); err != nil {
			s.log.Error("failed to publish entitlement event", sl.Err(err))
		}
	}

	return &state, nil
}

// State возвращает состояние прав пользователя, используя кеш или пересчет.
func (s *EntitlementService) State(ctx context.Context, username string) (*models.EntitlementState, error) {
	var cached models.EntitlementState
	cacheKey := fmt.Sprintf("entitlement:%s", username)
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return &cached, nil
	}
	return s.Reconcile(ctx, username)
}

// MembershipExpiry возвращает дату истечения членства или nil,
// если пользователь никогда не вносил членский взнос.
func (s *EntitlementService) MembershipExpiry(ctx context.Context, username string) (*time.Time, error) {
	state, err := s.State(ctx, username)
	if err != nil {
		return nil, err
	}
	return state.MembershipEnd, nil
}

// ConnectionExpiry возвращает дату истечения доступа к сети или nil.
func (s *EntitlementService) ConnectionExpiry(ctx context.Context, username string) (*time.Time, error) {
	state, err := s.State(ctx, username)
	if err != nil {
		return nil, err
	}
	return state.ConnectionEnd, nil
}

// HasActiveMembershipAt сообщает, действует ли членство в момент at.
func (s *EntitlementService) HasActiveMembershipAt(ctx context.Context, username string, at time.Time) (bool, error) {
	expiry, err := s.MembershipExpiry(ctx, username)
	if err != nil {
		return false, err
	}
	return expiry != nil && at.Before(*expiry), nil
}

// HasActiveMembership сообщает, действует ли членство сейчас.
func (s *EntitlementService) HasActiveMembership(ctx context.Context, username string) (bool, error) {
	return s.HasActiveMembershipAt(ctx, username, s.now())
}

// HasNetworkAccessAt сообщает, действует ли доступ к сети в момент at.
// Блокировки и белые списки проверяются вне ядра.
func (s *EntitlementService) HasNetworkAccessAt(ctx context.Context, username string, at time.Time) (bool, error) {
	expiry, err := s.ConnectionExpiry(ctx, username)
	if err != nil {
		return false, err
	}
	return expiry != nil && at.Before(*expiry), nil
}

// HasNetworkAccess сообщает, действует ли доступ к сети сейчас.
func (s *EntitlementService) HasNetworkAccess(ctx context.Context, username string) (bool, error) {
	return s.HasNetworkAccessAt(ctx, username, s.now())
}

// ContributionsFor проецирует покупки на вклады одного вида права.
func ContributionsFor(purchases []*models.Purchase, kind entitlement.Kind) []entitlement.Contribution {
	result := make([]entitlement.Contribution, 0, len(purchases))
	for _, p := range purchases {
		c := entitlement.Contribution{
			PurchaseID: p.ID,
			CreatedAt:  p.CreatedAt,
			Quantity:   p.Quantity,
		}
		switch kind {
		case entitlement.KindMembership:
			c.Months, c.ExtraDays = p.MembershipMonths, p.MembershipDays
		case entitlement.KindConnection:
			c.Months, c.ExtraDays = p.ConnectionMonths, p.ConnectionDays
		}
		result = append(result, c)
	}
	return result
}

func intervalEnd(iv *entitlement.Interval) *time.Time {
	if iv == nil {
		return nil
	}
	end := iv.End
	return &end
}
