// Package services содержит бизнес-логику каталога товаров с кешированием.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// CatalogRepository определяет методы для работы с каталогом в хранилище.
type CatalogRepository interface {
	// CreateItem добавляет новый товар и возвращает его ID.
	CreateItem(ctx context.Context, item models.Item) (int, error)
	// ReadItem возвращает товар по ID.
	ReadItem(ctx context.Context, id int) (*models.Item, error)
	// ListItems возвращает список товаров с пагинацией.
	ListItems(ctx context.Context, limit, offset int) ([]*models.Item, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// CatalogService реализует бизнес-логику каталога, включая кеширование.
type CatalogService struct {
	repo  CatalogRepository
	cache Cache
	log   *slog.Logger
}

// NewCatalogService создает новый экземпляр CatalogService.
func NewCatalogService(repo CatalogRepository, cache Cache, log *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create добавляет новый товар каталога, кеширует его и возвращает ID.
// Отрицательные длительности отсекаются валидацией на границе запроса.
func (s *CatalogService) Create(ctx context.Context, req models.DummyItem) (int, error) {
	item := models.Item{
		Name:             req.Name,
		Price:            req.Price,
		MembershipMonths: req.MembershipMonths,
		MembershipDays:   req.MembershipDays,
		ConnectionMonths: req.ConnectionMonths,
		ConnectionDays:   req.ConnectionDays,
		NeedsMembership:  req.NeedsMembership,
	}

	id, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return 0, err
	}
	s.log.Info("created catalog item", slog.Int("id", id), slog.String("name", item.Name))

	item.ID = id
	cacheKey := fmt.Sprintf("item:%d", id)
	if err := s.cache.Set(cacheKey, item, time.Hour); err != nil {
		s.log.Warn("failed to cache item", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return id, nil
}

// Read возвращает товар по ID, используя кеш или репозиторий.
func (s *CatalogService) Read(ctx context.Context, id int) (*models.Item, error) {
	var result *models.Item
	cacheKey := fmt.Sprintf("item:%d", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		return nil, err
	}
	if found {
		return result, nil
	}
	result, err = s.repo.ReadItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if result != nil {
		if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
			s.log.Warn("failed to add to cache", slog.String("key", cacheKey), slog.Any("err", err))
		}
	}
	return result, nil
}

// List возвращает список товаров каталога с пагинацией.
func (s *CatalogService) List(ctx context.Context, limit, offset int) ([]*models.Item, error) {
	return s.repo.ListItems(ctx, limit, offset)
}
