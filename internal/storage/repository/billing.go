package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// CreateInvoiceWithPurchases вставляет счет вместе со строками одной
// транзакцией и возвращает ID счета. Покупки либо записываются все,
// либо не записывается ничего.
func (s *Storage) CreateInvoiceWithPurchases(ctx context.Context, invoice models.Invoice, purchases []models.Purchase) (int, error) {
	const op = "storage.CreateInvoiceWithPurchases"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var invoiceID int
	query := `INSERT INTO invoices (username, kind, valid, created_at)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	if err := tx.QueryRowContext(ctx, query,
		invoice.Username, invoice.Kind, invoice.Valid, invoice.CreatedAt).Scan(&invoiceID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query = `INSERT INTO purchases (invoice_id, item_id, quantity,
			     membership_months, membership_days, connection_months, connection_days,
			     created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, p := range purchases {
		if _, err := tx.ExecContext(ctx, query,
			invoiceID, p.ItemID, p.Quantity,
			p.MembershipMonths, p.MembershipDays, p.ConnectionMonths, p.ConnectionDays,
			p.CreatedAt); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return invoiceID, nil
}

// ReadInvoice возвращает счет по его ID.
func (s *Storage) ReadInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	const op = "storage.ReadInvoice"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, kind, valid, created_at
			  FROM invoices WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Invoice
	if err := row.Scan(&result.ID, &result.Username, &result.Kind,
		&result.Valid, &result.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// SetInvoiceValidity выставляет флаг действительности счета и возвращает
// количество изменённых строк.
func (s *Storage) SetInvoiceValidity(ctx context.Context, id int, valid bool) (int, error) {
	const op = "storage.SetInvoiceValidity"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE invoices SET valid = $1 WHERE id = $2`
	result, err := s.DB.ExecContext(ctx, query, valid, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListInvoices возвращает счета пользователя с пагинацией.
func (s *Storage) ListInvoices(ctx context.Context, username string, limit, offset int) ([]*models.Invoice, error) {
	const op = "storage.ListInvoices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, kind, valid, created_at
			  FROM invoices
			  WHERE username = $1
			  ORDER BY created_at, id
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, username, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Invoice
	for rows.Next() {
		var item models.Invoice
		if err := rows.Scan(&item.ID, &item.Username, &item.Kind,
			&item.Valid, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RemovePurchase удаляет строку счета и возвращает количество удалённых строк.
func (s *Storage) RemovePurchase(ctx context.Context, id int) (int, error) {
	const op = "storage.RemovePurchase"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM purchases WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// UpdatePurchaseQuantity меняет количество в строке счета.
func (s *Storage) UpdatePurchaseQuantity(ctx context.Context, id, quantity int) (int, error) {
	const op = "storage.UpdatePurchaseQuantity"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE purchases SET quantity = $1 WHERE id = $2`
	result, err := s.DB.ExecContext(ctx, query, quantity, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
