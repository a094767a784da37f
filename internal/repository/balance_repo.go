package repository

import (
	"context"
	"errors"
	"fmt"

	"settlement-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetBalance(ctx context.Context, ownerID int64) (*domain.BalanceAccount, error) {
	var b domain.BalanceAccount
	err := s.db.QueryRow(ctx, `
		SELECT owner_id, available, total_earnings, total_fees_paid, updated_at
		FROM balances
		WHERE owner_id = $1
	`, ownerID).Scan(&b.OwnerID, &b.Available, &b.TotalEarnings, &b.TotalFeesPaid, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &b, nil
}

func (s *Store) Credit(ctx context.Context, ownerID int64, amount domain.Money) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO balances (owner_id, available, total_earnings, total_fees_paid)
		VALUES ($1, $2, $2, 0)
		ON CONFLICT (owner_id) DO UPDATE SET
			available      = balances.available + EXCLUDED.available,
			total_earnings = balances.total_earnings + EXCLUDED.total_earnings,
			updated_at     = NOW()
	`, ownerID, amount)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

// Debit is a single conditional decrement; the balance check and the write
// cannot be separated by a concurrent request.
func (s *Store) Debit(ctx context.Context, ownerID int64, amount domain.Money) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE balances
		SET available = available - $2, updated_at = NOW()
		WHERE owner_id = $1 AND available >= $2
	`, ownerID, amount)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}
