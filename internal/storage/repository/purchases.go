package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// ListValidContributions возвращает покупки пользователя по действительным
// счетам в порядке возрастания (created_at, id). Сметы в расчет прав не
// входят. Один запрос дает согласованный снимок: свертка не видит
// промежуточных состояний флагов действительности.
func (s *Storage) ListValidContributions(ctx context.Context, username string) ([]*models.Purchase, error) {
	const op = "storage.ListValidContributions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT p.id, p.invoice_id, p.item_id, p.quantity,
			      p.membership_months, p.membership_days,
			      p.connection_months, p.connection_days,
			      p.created_at
			  FROM purchases p
			  JOIN invoices i ON p.invoice_id = i.id
			  WHERE i.username = $1
			    AND i.valid = true
			    AND i.kind <> $2
			  ORDER BY p.created_at, p.id`
	rows, err := s.DB.QueryContext(ctx, query, username, models.InvoiceKindEstimate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Purchase
	for rows.Next() {
		var item models.Purchase
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ItemID, &item.Quantity,
			&item.MembershipMonths, &item.MembershipDays,
			&item.ConnectionMonths, &item.ConnectionDays,
			&item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
