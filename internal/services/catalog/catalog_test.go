package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateItem(ctx context.Context, item models.Item) (int, error) {
	args := m.Called(ctx, item)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) ReadItem(ctx context.Context, id int) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}
func (m *RepoMock) ListItems(ctx context.Context, limit, offset int) ([]*models.Item, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Item), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCatalogService_Create(t *testing.T) {
	req := models.DummyItem{
		Name:             "Членский взнос, год",
		Price:            2000,
		MembershipMonths: 12,
	}

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, c *CacheMock)
		wantID     int
		wantErr    bool
	}{
		{
			name: "success create",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("CreateItem", mock.Anything, mock.MatchedBy(func(item models.Item) bool {
					return item.Name == req.Name &&
						item.Price == req.Price &&
						item.MembershipMonths == req.MembershipMonths
				})).Return(7, nil).Once()
				c.On("Set", "item:7", mock.Anything, time.Hour).Return(nil).Once()
			},
			wantID: 7,
		},
		{
			name: "cache set error logs warning but returns id",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("CreateItem", mock.Anything, mock.Anything).Return(8, nil).Once()
				c.On("Set", "item:8", mock.Anything, time.Hour).Return(errors.New("redis down")).Once()
			},
			wantID: 8,
		},
		{
			name: "repository error",
			setupMocks: func(r *RepoMock, _ *CacheMock) {
				r.On("CreateItem", mock.Anything, mock.Anything).Return(0, errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := NewCatalogService(repo, cache, newNoopLogger())

			tt.setupMocks(repo, cache)

			got, err := svc.Create(context.Background(), req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantID, got)
			}

			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestCatalogService_Read(t *testing.T) {
	item := &models.Item{ID: 7, Name: "Подключение, месяц", ConnectionMonths: 1, NeedsMembership: true}

	t.Run("cache hit skips repository", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewCatalogService(repo, cache, newNoopLogger())

		cache.On("Get", "item:7", mock.Anything).
			Run(func(args mock.Arguments) {
				result := args.Get(1).(**models.Item)
				*result = item
			}).Return(true, nil).Once()

		got, err := svc.Read(context.Background(), 7)
		assert.NoError(t, err)
		assert.Equal(t, item, got)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache miss reads repository and caches", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewCatalogService(repo, cache, newNoopLogger())

		cache.On("Get", "item:7", mock.Anything).Return(false, nil).Once()
		repo.On("ReadItem", mock.Anything, 7).Return(item, nil).Once()
		cache.On("Set", "item:7", item, time.Hour).Return(nil).Once()

		got, err := svc.Read(context.Background(), 7)
		assert.NoError(t, err)
		assert.Equal(t, item, got)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})
}

func TestCatalogService_List(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := NewCatalogService(repo, cache, newNoopLogger())

	items := []*models.Item{{ID: 1, Name: "Членский взнос, год"}}
	repo.On("ListItems", mock.Anything, 10, 0).Return(items, nil).Once()

	got, err := svc.List(context.Background(), 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, items, got)

	repo.AssertExpectations(t)
}
