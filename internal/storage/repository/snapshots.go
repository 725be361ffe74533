package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/membership-ledger/internal/models"
)

// UpsertEntitlementSnapshot сохраняет результат пересчета прав пользователя.
// Снимок — только кеш для отчетных запросов; первичными данными остаются
// действительные покупки, по которым права пересчитываются заново.
func (s *Storage) UpsertEntitlementSnapshot(ctx context.Context, state models.EntitlementState) error {
	const op = "storage.UpsertEntitlementSnapshot"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO entitlement_snapshots (username, membership_end, connection_end, recalculated_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (username) DO UPDATE
			  SET membership_end = EXCLUDED.membership_end,
			      connection_end = EXCLUDED.connection_end,
			      recalculated_at = EXCLUDED.recalculated_at`
	if _, err := s.DB.ExecContext(ctx, query,
		state.Username, state.MembershipEnd, state.ConnectionEnd, state.RecalculatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindMembershipsExpiringTomorrow находит пользователей, членство которых
// истекает завтра, для почтовых уведомлений.
func (s *Storage) FindMembershipsExpiringTomorrow(ctx context.Context) ([]*models.ExpiryNotice, error) {
	const op = "storage.FindMembershipsExpiringTomorrow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.email, u.username, e.membership_end
			  FROM entitlement_snapshots e
			  JOIN users u ON e.username = u.username
			  WHERE e.membership_end IS NOT NULL
			    AND e.membership_end::DATE = CURRENT_DATE + INTERVAL '1 day'`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiryNotice
	for rows.Next() {
		var notice models.ExpiryNotice
		if err := rows.Scan(&notice.Email, &notice.Username, &notice.MembershipEnd); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &notice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReadEntitlementSnapshot возвращает последний сохраненный снимок прав
// пользователя или nil, если пересчет еще не выполнялся.
func (s *Storage) ReadEntitlementSnapshot(ctx context.Context, username string) (*models.EntitlementState, error) {
	const op = "storage.ReadEntitlementSnapshot"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT username, membership_end, connection_end, recalculated_at
			  FROM entitlement_snapshots
			  WHERE username = $1`
	row := s.DB.QueryRowContext(ctx, query, username)

	var state models.EntitlementState
	var membershipEnd, connectionEnd sql.NullTime
	if err := row.Scan(&state.Username, &membershipEnd, &connectionEnd, &state.RecalculatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if membershipEnd.Valid {
		state.MembershipEnd = &membershipEnd.Time
	}
	if connectionEnd.Valid {
		state.ConnectionEnd = &connectionEnd.Time
	}
	return &state, nil
}
