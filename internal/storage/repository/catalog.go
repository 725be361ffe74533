package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// CreateItem вставляет новый товар каталога и возвращает его ID.
func (s *Storage) CreateItem(ctx context.Context, item models.Item) (int, error) {
	const op = "storage.CreateItem"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO items (name, price, membership_months, membership_days,
			      connection_months, connection_days, needs_membership)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		item.Name, item.Price, item.MembershipMonths, item.MembershipDays,
		item.ConnectionMonths, item.ConnectionDays, item.NeedsMembership).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadItem возвращает товар каталога по его ID.
func (s *Storage) ReadItem(ctx context.Context, id int) (*models.Item, error) {
	const op = "storage.ReadItem"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price, membership_months, membership_days,
			      connection_months, connection_days, needs_membership
			  FROM items WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Item
	if err := row.Scan(&result.ID, &result.Name, &result.Price,
		&result.MembershipMonths, &result.MembershipDays,
		&result.ConnectionMonths, &result.ConnectionDays,
		&result.NeedsMembership); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// ListItems возвращает список товаров каталога с пагинацией.
func (s *Storage) ListItems(ctx context.Context, limit, offset int) ([]*models.Item, error) {
	const op = "storage.ListItems"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price, membership_months, membership_days,
			      connection_months, connection_days, needs_membership
			  FROM items
			  ORDER BY id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Price,
			&item.MembershipMonths, &item.MembershipDays,
			&item.ConnectionMonths, &item.ConnectionDays,
			&item.NeedsMembership); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
