package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settlement-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `
	id, order_id, type, payer_id, organizer_id, registration_id,
	gross_amount, platform_fee, net_amount, fee_percentage, status,
	payment_type, gateway_ref, snap_token, failure_reason,
	paid_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID, &t.OrderID, &t.Type, &t.PayerID, &t.OrganizerID, &t.RegistrationID,
		&t.GrossAmount, &t.PlatformFee, &t.NetAmount, &t.FeePercentage, &t.Status,
		&t.PaymentType, &t.GatewayRef, &t.SnapToken, &t.FailureReason,
		&t.PaidAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction, fees []*domain.Commission) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO transactions
		(order_id, type, payer_id, organizer_id, registration_id,
		 gross_amount, platform_fee, net_amount, fee_percentage, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		t.OrderID, t.Type, t.PayerID, t.OrganizerID, t.RegistrationID,
		t.GrossAmount, t.PlatformFee, t.NetAmount, t.FeePercentage, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	for _, fee := range fees {
		fee.TransactionID = t.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO commissions
			(transaction_id, type, percentage, amount, base_amount, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`, fee.TransactionID, fee.Type, fee.Percentage, fee.Amount, fee.BaseAmount, fee.Status,
		).Scan(&fee.ID, &fee.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert commission: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(s.db.QueryRow(ctx, query, id))
}

func (s *Store) GetTransactionByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE order_id = $1`
	return scanTransaction(s.db.QueryRow(ctx, query, orderID))
}

func (s *Store) ListTransactionsByPayer(ctx context.Context, payerID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE payer_id = $1`, payerID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE payer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Query(ctx, query, payerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *t)
	}
	return list, total, rows.Err()
}

func (s *Store) SetSnapToken(ctx context.Context, id int64, token string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions SET snap_token = $1, updated_at = NOW() WHERE id = $2
	`, token, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SettleTransaction is the single settlement unit: status CAS, commission
// settle and balance credit either all commit or none do. The affected-row
// check on the CAS is what makes concurrent redeliveries safe.
func (s *Store) SettleTransaction(ctx context.Context, id int64, gatewayRef, paymentType string, paidAt time.Time) (SettlementResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		txType      domain.TransactionType
		organizerID *int64
		netAmount   domain.Money
		platformFee domain.Money
	)
	err = tx.QueryRow(ctx, `
		UPDATE transactions
		SET status = 'paid', gateway_ref = $2, payment_type = $3,
		    paid_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING type, organizer_id, net_amount, platform_fee
	`, id, gatewayRef, paymentType, paidAt).Scan(&txType, &organizerID, &netAmount, &platformFee)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return SettlementResult{}, fmt.Errorf("settle transaction: %w", err)
		}
		// CAS missed: either the row is gone, already paid (duplicate
		// delivery, success) or in a state that cannot settle.
		current, gerr := s.GetTransactionByID(ctx, id)
		if gerr != nil {
			return SettlementResult{}, gerr
		}
		if current.Status == domain.TransactionStatusPaid {
			return SettlementResult{Applied: false}, nil
		}
		return SettlementResult{}, fmt.Errorf("settle from %s: %w", current.Status, domain.ErrInvalidTransition)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE commissions SET status = 'paid', paid_at = $2
		WHERE transaction_id = $1 AND status = 'pending'
	`, id, paidAt); err != nil {
		return SettlementResult{}, fmt.Errorf("settle commissions: %w", err)
	}

	credited := domain.Money(0)
	if txType == domain.TransactionTypeEventPayment && organizerID != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO balances (owner_id, available, total_earnings, total_fees_paid)
			VALUES ($1, $2, $2, $3)
			ON CONFLICT (owner_id) DO UPDATE SET
				available       = balances.available + EXCLUDED.available,
				total_earnings  = balances.total_earnings + EXCLUDED.total_earnings,
				total_fees_paid = balances.total_fees_paid + EXCLUDED.total_fees_paid,
				updated_at      = NOW()
		`, *organizerID, netAmount, platformFee); err != nil {
			return SettlementResult{}, fmt.Errorf("credit balance: %w", err)
		}
		credited = netAmount
	}

	if err := tx.Commit(ctx); err != nil {
		return SettlementResult{}, fmt.Errorf("commit settlement: %w", err)
	}
	return SettlementResult{Applied: true, Credited: credited}, nil
}

func (s *Store) CloseTransaction(ctx context.Context, id int64, status domain.TransactionStatus, reason string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, status, reason)
	if err != nil {
		return fmt.Errorf("close transaction: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	current, err := s.GetTransactionByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == status {
		// Redelivered terminal notification, nothing left to do.
		return nil
	}
	return fmt.Errorf("close from %s: %w", current.Status, domain.ErrInvalidTransition)
}

func (s *Store) RefundTransaction(ctx context.Context, id int64, reason string) (RefundResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return RefundResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		txType      domain.TransactionType
		organizerID *int64
		netAmount   domain.Money
	)
	err = tx.QueryRow(ctx, `
		UPDATE transactions
		SET status = 'refunded', failure_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'paid'
		RETURNING type, organizer_id, net_amount
	`, id, reason).Scan(&txType, &organizerID, &netAmount)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return RefundResult{}, fmt.Errorf("refund transaction: %w", err)
		}
		current, gerr := s.GetTransactionByID(ctx, id)
		if gerr != nil {
			return RefundResult{}, gerr
		}
		return RefundResult{}, fmt.Errorf("refund from %s: %w", current.Status, domain.ErrInvalidTransition)
	}

	result := RefundResult{ClawedBack: true}
	if txType == domain.TransactionTypeEventPayment && organizerID != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE balances
			SET available = available - $2, updated_at = NOW()
			WHERE owner_id = $1 AND available >= $2
		`, *organizerID, netAmount)
		if err != nil {
			return RefundResult{}, fmt.Errorf("clawback debit: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Funds were already withdrawn. The refund stands; record the
			// shortfall for manual reconciliation instead of going negative.
			var available domain.Money
			if err := tx.QueryRow(ctx,
				`SELECT COALESCE((SELECT available FROM balances WHERE owner_id = $1), 0)`,
				*organizerID,
			).Scan(&available); err != nil {
				return RefundResult{}, fmt.Errorf("read balance: %w", err)
			}
			result.ClawedBack = false
			result.Shortfall = netAmount - available
			if _, err := tx.Exec(ctx, `
				UPDATE transactions
				SET failure_reason = $2, updated_at = NOW()
				WHERE id = $1
			`, id, fmt.Sprintf("%s (clawback shortfall: %d)", reason, result.Shortfall)); err != nil {
				return RefundResult{}, fmt.Errorf("record shortfall: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return RefundResult{}, fmt.Errorf("commit refund: %w", err)
	}
	return result, nil
}

func (s *Store) ListCommissionsByTransaction(ctx context.Context, transactionID int64) ([]domain.Commission, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, transaction_id, type, percentage, amount, base_amount, status, paid_at, created_at
		FROM commissions
		WHERE transaction_id = $1
		ORDER BY id
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Commission
	for rows.Next() {
		var c domain.Commission
		if err := rows.Scan(
			&c.ID, &c.TransactionID, &c.Type, &c.Percentage,
			&c.Amount, &c.BaseAmount, &c.Status, &c.PaidAt, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
