// Package services содержит бизнес-логику выставления счетов: создание
// счета со строками, правило допуска покупок и обработку уведомлений
// платежного шлюза.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/membership-ledger/internal/entitlement"
	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// BillingRepository определяет методы хранилища для работы со счетами.
type BillingRepository interface {
	// CreateInvoiceWithPurchases записывает счет и строки одной транзакцией.
	CreateInvoiceWithPurchases(ctx context.Context, invoice models.Invoice, purchases []models.Purchase) (int, error)
	// ReadInvoice возвращает счет по ID.
	ReadInvoice(ctx context.Context, id int) (*models.Invoice, error)
	// SetInvoiceValidity выставляет флаг действительности счета.
	SetInvoiceValidity(ctx context.Context, id int, valid bool) (int, error)
	// ListInvoices возвращает счета пользователя с пагинацией.
	ListInvoices(ctx context.Context, username string, limit, offset int) ([]*models.Invoice, error)
	// ReadItem возвращает товар каталога.
	ReadItem(ctx context.Context, id int) (*models.Item, error)
	// ListValidContributions возвращает покупки по действительным счетам.
	ListValidContributions(ctx context.Context, username string) ([]*models.Purchase, error)
	// RemovePurchase удаляет строку счета.
	RemovePurchase(ctx context.Context, id int) (int, error)
	// UpdatePurchaseQuantity меняет количество в строке счета.
	UpdatePurchaseQuantity(ctx context.Context, id, quantity int) (int, error)
}

// Reconciler запускает пересчет прав пользователя.
type Reconciler interface {
	Reconcile(ctx context.Context, username string) (*models.EntitlementState, error)
}

// BillingService реализует бизнес-логику счетов и покупок.
type BillingService struct {
	repo         BillingRepository
	entitlements Reconciler
	log          *slog.Logger
	now          func() time.Time
}

// NewBillingService создает новый экземпляр BillingService.
func NewBillingService(repo BillingRepository, entitlements Reconciler, log *slog.Logger) *BillingService {
	return &BillingService{
		repo:         repo,
		entitlements: entitlements,
		log:          log,
		now:          time.Now,
	}
}

// WithClock подменяет источник текущего времени; используется в тестах.
func (s *BillingService) WithClock(now func() time.Time) *BillingService {
	s.now = now
	return s
}

// CreateInvoice создает счет со строками для пользователя.
//
// Для каждой строки с товаром, требующим действующего членства, правило
// допуска проверяется по вкладу покупок, хронологически предшествующих
// строке, включая предыдущие строки этого же счета: так счет "взнос +
// подключение" проходит одной операцией. Отказ — ErrMembershipRequired.
//
// Только оператор может провести счет сразу оплаченным (касса); обычный
// счет становится действительным после подтверждения оплаты шлюзом.
// Сметы никогда не проводятся.
func (s *BillingService) CreateInvoice(ctx context.Context, username, role string, req models.DummyInvoice) (int, error) {
	now := s.now()

	kind := req.Kind
	if kind == "" {
		kind = models.InvoiceKindStandard
	}
	valid := req.Paid && role == "admin" && kind != models.InvoiceKindEstimate

	existing, err := s.repo.ListValidContributions(ctx, username)
	if err != nil {
		return 0, err
	}
	// Вклады в членство до проверяемой строки: сначала существующие
	// покупки, затем предыдущие строки создаваемого счета.
	prior := membershipContributions(existing)

	purchases := make([]models.Purchase, 0, len(req.Lines))
	for _, line := range req.Lines {
		item, err := s.repo.ReadItem(ctx, line.ItemID)
		if err != nil {
			return 0, fmt.Errorf("unknown item %d: %w", line.ItemID, err)
		}

		if item.NeedsMembership {
			if err := entitlement.CheckAdmission(prior, now); err != nil {
				return 0, fmt.Errorf("item %q: %w", item.Name, err)
			}
		}

		p := models.Purchase{
			ItemID:           item.ID,
			Quantity:         line.Quantity,
			MembershipMonths: item.MembershipMonths,
			MembershipDays:   item.MembershipDays,
			ConnectionMonths: item.ConnectionMonths,
			ConnectionDays:   item.ConnectionDays,
			CreatedAt:        now,
		}
		purchases = append(purchases, p)
		prior = append(prior, entitlement.Contribution{
			CreatedAt: now,
			Quantity:  line.Quantity,
			Months:    item.MembershipMonths,
			ExtraDays: item.MembershipDays,
		})
	}

	invoice := models.Invoice{
		Username:  username,
		Kind:      kind,
		Valid:     valid,
		CreatedAt: now,
	}
	id, err := s.repo.CreateInvoiceWithPurchases(ctx, invoice, purchases)
	if err != nil {
		return 0, err
	}
	s.log.Info("created invoice",
		slog.Int("id", id),
		slog.String("username", username),
		slog.Bool("valid", valid))

	if valid {
		if _, err := s.entitlements.Reconcile(ctx, username); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// SetInvoiceValidity выставляет флаг действительности счета и синхронно
// пересчитывает права владельца: аннулирование задним числом немедленно
// отражается на состоянии доступа.
func (s *BillingService) SetInvoiceValidity(ctx context.Context, invoiceID int, valid bool) error {
	invoice, err := s.repo.ReadInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Valid == valid {
		return nil
	}

	if _, err := s.repo.SetInvoiceValidity(ctx, invoiceID, valid); err != nil {
		return err
	}
	s.log.Info("invoice validity changed",
		slog.Int("id", invoiceID),
		slog.Bool("valid", valid))

	_, err = s.entitlements.Reconcile(ctx, invoice.Username)
	return err
}

// HandlePaymentNotification обрабатывает уведомление платежного шлюза.
// Ядру важен только итог: успешная оплата делает счет действительным,
// отмена — недействительным.
func (s *BillingService) HandlePaymentNotification(ctx context.Context, notif models.PaymentNotification) error {
	return s.SetInvoiceValidity(ctx, notif.InvoiceID, notif.Status == "succeeded")
}

// ListInvoices возвращает счета пользователя с пагинацией.
func (s *BillingService) ListInvoices(ctx context.Context, username string, limit, offset int) ([]*models.Invoice, error) {
	return s.repo.ListInvoices(ctx, username, limit, offset)
}

// RemovePurchase удаляет строку счета и пересчитывает права владельца.
func (s *BillingService) RemovePurchase(ctx context.Context, invoiceID, purchaseID int) error {
	invoice, err := s.repo.ReadInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	count, err := s.repo.RemovePurchase(ctx, purchaseID)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("purchase %d not found", purchaseID)
	}
	_, err = s.entitlements.Reconcile(ctx, invoice.Username)
	return err
}

// UpdatePurchaseQuantity меняет количество в строке счета и пересчитывает
// права владельца.
func (s *BillingService) UpdatePurchaseQuantity(ctx context.Context, invoiceID, purchaseID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be >= 1: %w", entitlement.ErrInvalidDuration)
	}
	invoice, err := s.repo.ReadInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	count, err := s.repo.UpdatePurchaseQuantity(ctx, purchaseID, quantity)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("purchase %d not found", purchaseID)
	}
	_, err = s.entitlements.Reconcile(ctx, invoice.Username)
	return err
}

func membershipContributions(purchases []*models.Purchase) []entitlement.Contribution {
	result := make([]entitlement.Contribution, 0, len(purchases))
	for _, p := range purchases {
		result = append(result, entitlement.Contribution{
			PurchaseID: p.ID,
			CreatedAt:  p.CreatedAt,
			Quantity:   p.Quantity,
			Months:     p.MembershipMonths,
			ExtraDays:  p.MembershipDays,
		})
	}
	return result
}
