package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settlement-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

const withdrawalColumns = `
	id, code, owner_id, bank_account_id, amount, admin_fee, net_amount,
	status, notes, reject_reason, approved_by, rejected_by, transfer_proof,
	requested_at, approved_at, processed_at, completed_at, updated_at`

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := row.Scan(
		&w.ID, &w.Code, &w.OwnerID, &w.BankAccountID, &w.Amount, &w.AdminFee, &w.NetAmount,
		&w.Status, &w.Notes, &w.RejectReason, &w.ApprovedBy, &w.RejectedBy, &w.TransferProof,
		&w.RequestedAt, &w.ApprovedAt, &w.ProcessedAt, &w.CompletedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// CreateWithHold inserts the withdrawal and removes the requested amount from
// available balance in one db transaction. Two near-simultaneous requests
// against the same balance cannot both pass the conditional decrement.
func (s *Store) CreateWithHold(ctx context.Context, w *domain.Withdrawal) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE balances
		SET available = available - $2, updated_at = NOW()
		WHERE owner_id = $1 AND available >= $2
	`, w.OwnerID, w.Amount)
	if err != nil {
		return fmt.Errorf("hold funds: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO withdrawals
		(code, owner_id, bank_account_id, amount, admin_fee, net_amount, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, requested_at, updated_at
	`, w.Code, w.OwnerID, w.BankAccountID, w.Amount, w.AdminFee, w.NetAmount, w.Status, w.Notes,
	).Scan(&w.ID, &w.RequestedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	return scanWithdrawal(s.db.QueryRow(ctx, query, id))
}

func (s *Store) GetWithdrawalByCode(ctx context.Context, code string) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE code = $1`
	return scanWithdrawal(s.db.QueryRow(ctx, query, code))
}

func (s *Store) ListWithdrawalsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Withdrawal, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM withdrawals WHERE owner_id = $1`, ownerID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE owner_id = $1
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *w)
	}
	return list, total, rows.Err()
}

func (s *Store) Approve(ctx context.Context, id, adminID int64, notes string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE withdrawals
		SET status = 'approved', approved_by = $2, notes = COALESCE(NULLIF($3, ''), notes),
		    approved_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, adminID, notes, at)
	if err != nil {
		return fmt.Errorf("approve withdrawal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.withdrawalTransitionError(ctx, id, domain.WithdrawalStatusApproved)
	}
	return nil
}

func (s *Store) RejectAndRelease(ctx context.Context, id, adminID int64, reason string, at time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		ownerID int64
		amount  domain.Money
	)
	err = tx.QueryRow(ctx, `
		UPDATE withdrawals
		SET status = 'rejected', rejected_by = $2, reject_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'approved')
		RETURNING owner_id, amount
	`, id, adminID, reason).Scan(&ownerID, &amount)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("reject withdrawal: %w", err)
		}
		return s.withdrawalTransitionError(ctx, id, domain.WithdrawalStatusRejected)
	}

	// Release the hold. This is the only path that returns held funds.
	if _, err := tx.Exec(ctx, `
		UPDATE balances
		SET available = available + $2, updated_at = NOW()
		WHERE owner_id = $1
	`, ownerID, amount); err != nil {
		return fmt.Errorf("release hold: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) MarkProcessed(ctx context.Context, id int64, transferProof string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE withdrawals
		SET status = 'processed', transfer_proof = $2, processed_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'approved'
	`, id, transferProof, at)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.withdrawalTransitionError(ctx, id, domain.WithdrawalStatusProcessed)
	}
	return nil
}

func (s *Store) MarkCompleted(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE withdrawals
		SET status = 'completed', completed_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'processed'
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.withdrawalTransitionError(ctx, id, domain.WithdrawalStatusCompleted)
	}
	return nil
}

func (s *Store) GetBankAccount(ctx context.Context, id int64) (*domain.BankAccount, error) {
	var b domain.BankAccount
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_id, bank_name, account_number, account_name, is_verified
		FROM bank_accounts
		WHERE id = $1
	`, id).Scan(&b.ID, &b.OwnerID, &b.BankName, &b.AccountNumber, &b.AccountName, &b.IsVerified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get bank account: %w", err)
	}
	return &b, nil
}

func (s *Store) withdrawalTransitionError(ctx context.Context, id int64, target domain.WithdrawalStatus) error {
	current, err := s.GetWithdrawal(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("withdrawal %s -> %s: %w", current.Status, target, domain.ErrInvalidTransition)
}
