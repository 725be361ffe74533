package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

func TestStorage_ListValidContributions(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		username  string
		wantCount int
		setup     func(t *testing.T, factory *TestDataFactory)
		check     func(t *testing.T, got []*models.Purchase)
	}{
		{
			name:      "returns purchases ordered by created_at then id",
			username:  "testuser",
			wantCount: 3,
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", "user")
				itemID := factory.CreateItem(t, "Adhesion", 2600, 12, 0, 0, 0, false)

				later := factory.CreateInvoice(t, "testuser", models.InvoiceKindStandard, true, baseDate.AddDate(0, 1, 0))
				earlier := factory.CreateInvoice(t, "testuser", models.InvoiceKindStandard, true, baseDate)

				// Строки создаются не по порядку дат, выборка должна отсортировать
				factory.CreatePurchase(t, later, itemID, 1, 12, 0, 0, 0, baseDate.AddDate(0, 1, 0))
				factory.CreatePurchase(t, earlier, itemID, 1, 12, 0, 0, 0, baseDate)
				factory.CreatePurchase(t, earlier, itemID, 2, 12, 0, 0, 0, baseDate)
			},
			check: func(t *testing.T, got []*models.Purchase) {
				require.Len(t, got, 3)
				for i := 1; i < len(got); i++ {
					prev, cur := got[i-1], got[i]
					ok := prev.CreatedAt.Before(cur.CreatedAt) ||
						(prev.CreatedAt.Equal(cur.CreatedAt) && prev.ID < cur.ID)
					assert.True(t, ok, "purchases must be ordered by (created_at, id)")
				}
			},
		},
		{
			name:      "excludes purchases of invalid invoices",
			username:  "testuser",
			wantCount: 1,
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", "user")
				itemID := factory.CreateItem(t, "Adhesion", 2600, 12, 0, 0, 0, false)

				valid := factory.CreateInvoice(t, "testuser", models.InvoiceKindStandard, true, baseDate)
				invalid := factory.CreateInvoice(t, "testuser", models.InvoiceKindStandard, false, baseDate)

				factory.CreatePurchase(t, valid, itemID, 1, 12, 0, 0, 0, baseDate)
				factory.CreatePurchase(t, invalid, itemID, 1, 12, 0, 0, 0, baseDate)
			},
		},
		{
			name:      "excludes estimate invoices even when marked valid",
			username:  "testuser",
			wantCount: 1,
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", "user")
				itemID := factory.CreateItem(t, "Adhesion", 2600, 12, 0, 0, 0, false)

				standard := factory.CreateInvoice(t, "testuser", models.InvoiceKindStandard, true, baseDate)
				estimate := factory.CreateInvoice(t, "testuser", models.InvoiceKindEstimate, true, baseDate)

				factory.CreatePurchase(t, standard, itemID, 1, 12, 0, 0, 0, baseDate)
				factory.CreatePurchase(t, estimate, itemID, 1, 12, 0, 0, 0, baseDate)
			},
		},
		{
			name:      "excludes purchases of other users",
			username:  "testuser",
			wantCount: 1,
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", "user")
				factory.CreateUser(t, "otheruser", "other@example.com", "hashedpassword", "user")
				itemID := factory.CreateItem(t, "Adhesion", 2600, 12, 0, 0, 0, false)

				mine := factory.CreateInvoice(t, "testuser", models.InvoiceKindStandard, true, baseDate)
				theirs := factory.CreateInvoice(t, "otheruser", models.InvoiceKindStandard, true, baseDate)

				factory.CreatePurchase(t, mine, itemID, 1, 12, 0, 0, 0, baseDate)
				factory.CreatePurchase(t, theirs, itemID, 1, 12, 0, 0, 0, baseDate)
			},
		},
		{
			name:      "empty result for user without purchases",
			username:  "nonexistent",
			wantCount: 0,
			setup:     func(_ *testing.T, _ *TestDataFactory) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			tt.setup(t, factory)

			got, err := storage.ListValidContributions(context.Background(), tt.username)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestStorage_CreateInvoiceWithPurchases(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)

	factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", "user")
	itemID := factory.CreateItem(t, "Adhesion", 2600, 12, 0, 0, 0, false)

	t.Run("inserts invoice and all purchases atomically", func(t *testing.T) {
		invoice := models.Invoice{
			Username:  "testuser",
			Kind:      models.InvoiceKindStandard,
			Valid:     false,
			CreatedAt: baseDate,
		}
		purchases := []models.Purchase{
			{ItemID: itemID, Quantity: 1, MembershipMonths: 12, CreatedAt: baseDate},
			{ItemID: itemID, Quantity: 2, MembershipMonths: 12, CreatedAt: baseDate},
		}

		invoiceID, err := storage.CreateInvoiceWithPurchases(context.Background(), invoice, purchases)
		require.NoError(t, err)
		require.Positive(t, invoiceID)

		verification.VerifyInvoiceExists(t, invoiceID)
		verification.VerifyPurchaseCount(t, invoiceID, 2)
	})

	t.Run("rolls back invoice when a purchase fails", func(t *testing.T) {
		var before int
		err := storage.DB.QueryRow("SELECT COUNT(*) FROM invoices").Scan(&before)
		require.NoError(t, err)

		invoice := models.Invoice{
			Username:  "testuser",
			Kind:      models.InvoiceKindStandard,
			Valid:     false,
			CreatedAt: baseDate,
		}
		purchases := []models.Purchase{
			{ItemID: 99999, Quantity: 1, MembershipMonths: 12, CreatedAt: baseDate},
		}

		_, err = storage.CreateInvoiceWithPurchases(context.Background(), invoice, purchases)
		require.Error(t, err)

		var after int
		err = storage.DB.QueryRow("SELECT COUNT(*) FROM invoices").Scan(&after)
		require.NoError(t, err)
		assert.Equal(t, before, after, "invoice must not survive a failed purchase insert")
	})
}

func TestStorage_SetInvoiceValidity(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", "user")
	invoiceID := factory.CreateInvoice(t, "testuser", models.InvoiceKindStandard, false, baseDate)

	t.Run("flips validity flag", func(t *testing.T) {
		affected, err := storage.SetInvoiceValidity(context.Background(), invoiceID, true)
		require.NoError(t, err)
		assert.Equal(t, 1, affected)

		got, err := storage.ReadInvoice(context.Background(), invoiceID)
		require.NoError(t, err)
		assert.True(t, got.Valid)
	})

	t.Run("returns zero for unknown invoice", func(t *testing.T) {
		affected, err := storage.SetInvoiceValidity(context.Background(), 99999, true)
		require.NoError(t, err)
		assert.Equal(t, 0, affected)
	})
}

func TestStorage_ListInvoices(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", "user")
	for i := range 5 {
		factory.CreateInvoice(t, "testuser", models.InvoiceKindStandard, true, baseDate.AddDate(0, 0, i))
	}

	t.Run("returns first page in creation order", func(t *testing.T) {
		got, err := storage.ListInvoices(context.Background(), "testuser", 3, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, got[0].CreatedAt.Before(got[2].CreatedAt))
	})

	t.Run("returns remainder with offset", func(t *testing.T) {
		got, err := storage.ListInvoices(context.Background(), "testuser", 3, 3)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("empty for unknown user", func(t *testing.T) {
		got, err := storage.ListInvoices(context.Background(), "nonexistent", 10, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStorage_PurchaseMutations(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", "user")
	itemID := factory.CreateItem(t, "Adhesion", 2600, 12, 0, 0, 0, false)
	invoiceID := factory.CreateInvoice(t, "testuser", models.InvoiceKindStandard, true, baseDate)
	purchaseID := factory.CreatePurchase(t, invoiceID, itemID, 1, 12, 0, 0, 0, baseDate)

	t.Run("update quantity", func(t *testing.T) {
		affected, err := storage.UpdatePurchaseQuantity(context.Background(), purchaseID, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, affected)

		var quantity int
		err = storage.DB.QueryRow("SELECT quantity FROM purchases WHERE id = $1", purchaseID).Scan(&quantity)
		require.NoError(t, err)
		assert.Equal(t, 3, quantity)
	})

	t.Run("update quantity of unknown purchase", func(t *testing.T) {
		affected, err := storage.UpdatePurchaseQuantity(context.Background(), 99999, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, affected)
	})

	t.Run("remove purchase", func(t *testing.T) {
		affected, err := storage.RemovePurchase(context.Background(), purchaseID)
		require.NoError(t, err)
		assert.Equal(t, 1, affected)

		affected, err = storage.RemovePurchase(context.Background(), purchaseID)
		require.NoError(t, err)
		assert.Equal(t, 0, affected)
	})
}

func TestStorage_EntitlementSnapshot(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", "user")

	membershipEnd := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	connectionEnd := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	recalculatedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("read before first recalculation returns nil", func(t *testing.T) {
		got, err := storage.ReadEntitlementSnapshot(context.Background(), "testuser")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("upsert inserts then overwrites", func(t *testing.T) {
		state := models.EntitlementState{
			Username:       "testuser",
			MembershipEnd:  &membershipEnd,
			ConnectionEnd:  &connectionEnd,
			RecalculatedAt: recalculatedAt,
		}
		require.NoError(t, storage.UpsertEntitlementSnapshot(context.Background(), state))

		got, err := storage.ReadEntitlementSnapshot(context.Background(), "testuser")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.MembershipEnd)
		assert.True(t, got.MembershipEnd.Equal(membershipEnd))
		require.NotNil(t, got.ConnectionEnd)
		assert.True(t, got.ConnectionEnd.Equal(connectionEnd))

		// Пересчет задним числом может обнулить даты
		state.MembershipEnd = nil
		state.ConnectionEnd = nil
		state.RecalculatedAt = recalculatedAt.Add(time.Hour)
		require.NoError(t, storage.UpsertEntitlementSnapshot(context.Background(), state))

		got, err = storage.ReadEntitlementSnapshot(context.Background(), "testuser")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.MembershipEnd)
		assert.Nil(t, got.ConnectionEnd)
	})
}

func TestStorage_FindMembershipsExpiringTomorrow(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, "expiring", "expiring@example.com", "hashedpassword", "user")
	factory.CreateUser(t, "longterm", "longterm@example.com", "hashedpassword", "user")
	factory.CreateUser(t, "lapsed", "lapsed@example.com", "hashedpassword", "user")

	now := time.Now().UTC()
	tomorrow := now.AddDate(0, 0, 1)
	nextMonth := now.AddDate(0, 1, 0)
	yesterday := now.AddDate(0, 0, -1)

	for _, s := range []models.EntitlementState{
		{Username: "expiring", MembershipEnd: &tomorrow, RecalculatedAt: now},
		{Username: "longterm", MembershipEnd: &nextMonth, RecalculatedAt: now},
		{Username: "lapsed", MembershipEnd: &yesterday, RecalculatedAt: now},
	} {
		require.NoError(t, storage.UpsertEntitlementSnapshot(context.Background(), s))
	}

	got, err := storage.FindMembershipsExpiringTomorrow(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "expiring", got[0].Username)
	assert.Equal(t, "expiring@example.com", got[0].Email)
}

func TestStorage_Users(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	t.Run("register then read back", func(t *testing.T) {
		uid, err := storage.RegisterUser(context.Background(), models.User{
			Email:        "new@example.com",
			Username:     "newuser",
			PasswordHash: "hashedpassword",
			Role:         "user",
		})
		require.NoError(t, err)
		require.NotEmpty(t, uid)

		got, err := storage.GetUserByUsername(context.Background(), "newuser")
		require.NoError(t, err)
		assert.Equal(t, uid, got.UID)
		assert.Equal(t, "new@example.com", got.Email)
		assert.Equal(t, "user", got.Role)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		_, err := storage.RegisterUser(context.Background(), models.User{
			Email:        "other@example.com",
			Username:     "newuser",
			PasswordHash: "hashedpassword",
			Role:         "user",
		})
		require.Error(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := storage.GetUserByUsername(context.Background(), "nonexistent")
		require.Error(t, err)
	})
}

func TestStorage_CheckDatabaseReady(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	require.NoError(t, CheckDatabaseReady(storage))

	_, err := storage.DB.Exec("DROP TABLE purchases CASCADE")
	require.NoError(t, err)
	require.Error(t, CheckDatabaseReady(storage))
}

func TestStorage_Catalog(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("create then read", func(t *testing.T) {
		id, err := storage.CreateItem(ctx, models.Item{
			Name:             "Adhesion annuelle",
			Price:            2600,
			MembershipMonths: 12,
			NeedsMembership:  false,
		})
		require.NoError(t, err)
		require.Positive(t, id)

		got, err := storage.ReadItem(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Adhesion annuelle", got.Name)
		assert.Equal(t, 12, got.MembershipMonths)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		_, err := storage.CreateItem(ctx, models.Item{Name: "Adhesion annuelle", Price: 2600})
		require.Error(t, err)
	})

	t.Run("list with pagination", func(t *testing.T) {
		_, err := storage.CreateItem(ctx, models.Item{
			Name:             "Connexion 1 mois",
			Price:            1000,
			ConnectionMonths: 1,
			NeedsMembership:  true,
		})
		require.NoError(t, err)

		got, err := storage.ListItems(ctx, 1, 0)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = storage.ListItems(ctx, 10, 0)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
