// Package ledger owns the transaction state machine. It is the only writer
// of transaction status; settlement side effects (commission settle, balance
// credit) happen inside the storage transaction that flips the status, so a
// partial failure rolls everything back.
package ledger

import (
	"context"
	"fmt"
	"time"

	"settlement-service/internal/domain"
	"settlement-service/internal/repository"
	"settlement-service/internal/settings"
	"settlement-service/internal/usecase/commission"
	"settlement-service/pkg/id"

	"go.uber.org/zap"
)

type Ledger struct {
	store       repository.LedgerStore
	commissions *commission.Engine
	settings    settings.Provider
	ids         *id.Generator
	logger      *zap.Logger
}

func New(store repository.LedgerStore, commissions *commission.Engine, settings settings.Provider, ids *id.Generator, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:       store,
		commissions: commissions,
		settings:    settings,
		ids:         ids,
		logger:      logger,
	}
}

type OpenParams struct {
	Type           domain.TransactionType
	PayerID        int64
	OrganizerID    *int64
	RegistrationID *int64
	GrossAmount    domain.Money
}

// Open creates a pending transaction with the fee percentage snapshotted from
// the current settings, plus its pending commission rows. Later configuration
// changes never alter this transaction's fee math.
func (l *Ledger) Open(ctx context.Context, p OpenParams) (*domain.Transaction, error) {
	if p.GrossAmount <= 0 {
		return nil, fmt.Errorf("gross amount %d: %w", p.GrossAmount, domain.ErrInvalidAmount)
	}
	if p.Type == domain.TransactionTypeEventPayment && p.OrganizerID == nil {
		return nil, fmt.Errorf("event payment without organizer: %w", domain.ErrInvalidAmount)
	}

	pct, err := l.settings.FeePercentage(ctx)
	if err != nil {
		return nil, fmt.Errorf("read fee percentage: %w", err)
	}

	fee := l.commissions.PlatformFee(p.GrossAmount, pct)
	t := &domain.Transaction{
		OrderID:        l.ids.OrderID(),
		Type:           p.Type,
		PayerID:        p.PayerID,
		OrganizerID:    p.OrganizerID,
		RegistrationID: p.RegistrationID,
		GrossAmount:    p.GrossAmount,
		PlatformFee:    fee,
		NetAmount:      p.GrossAmount - fee,
		FeePercentage:  pct,
		Status:         domain.TransactionStatusPending,
	}

	fees, err := l.commissions.LineItems(t)
	if err != nil {
		return nil, err
	}

	if err := l.store.CreateTransaction(ctx, t, fees); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	l.logger.Info("transaction opened",
		zap.String("order_id", t.OrderID),
		zap.String("type", string(t.Type)),
		zap.Int64("gross_amount", t.GrossAmount.Int64()),
		zap.Int64("platform_fee", t.PlatformFee.Int64()),
		zap.String("fee_percentage", pct.String()))
	return t, nil
}

// MarkPaid settles a transaction. Idempotent: a transaction that is already
// paid returns success without crediting anything again, and the underlying
// compare-and-set means two racing deliveries cannot both apply.
func (l *Ledger) MarkPaid(ctx context.Context, transactionID int64, gatewayRef, paymentType string) error {
	result, err := l.store.SettleTransaction(ctx, transactionID, gatewayRef, paymentType, time.Now())
	if err != nil {
		return err
	}
	if !result.Applied {
		l.logger.Info("duplicate settlement ignored",
			zap.Int64("transaction_id", transactionID),
			zap.String("gateway_ref", gatewayRef))
		return nil
	}
	l.logger.Info("transaction settled",
		zap.Int64("transaction_id", transactionID),
		zap.String("gateway_ref", gatewayRef),
		zap.Int64("credited", result.Credited.Int64()))
	return nil
}

func (l *Ledger) MarkFailed(ctx context.Context, transactionID int64, reason string) error {
	return l.close(ctx, transactionID, domain.TransactionStatusFailed, reason)
}

func (l *Ledger) MarkExpired(ctx context.Context, transactionID int64, reason string) error {
	return l.close(ctx, transactionID, domain.TransactionStatusExpired, reason)
}

func (l *Ledger) MarkCancelled(ctx context.Context, transactionID int64, reason string) error {
	return l.close(ctx, transactionID, domain.TransactionStatusCancelled, reason)
}

func (l *Ledger) close(ctx context.Context, transactionID int64, status domain.TransactionStatus, reason string) error {
	if err := l.store.CloseTransaction(ctx, transactionID, status, reason); err != nil {
		return err
	}
	l.logger.Info("transaction closed",
		zap.Int64("transaction_id", transactionID),
		zap.String("status", string(status)),
		zap.String("reason", reason))
	return nil
}

// Refund reverses a paid transaction and claws the organizer's net amount
// back from their balance. When the funds were already withdrawn the refund
// still commits and ErrClawbackShortfall is returned so operations can
// reconcile manually; the balance never goes negative.
func (l *Ledger) Refund(ctx context.Context, transactionID int64, reason string) error {
	result, err := l.store.RefundTransaction(ctx, transactionID, reason)
	if err != nil {
		return err
	}
	if !result.ClawedBack {
		l.logger.Warn("refund recorded with clawback shortfall",
			zap.Int64("transaction_id", transactionID),
			zap.Int64("shortfall", result.Shortfall.Int64()),
			zap.String("reason", reason))
		return fmt.Errorf("shortfall %d: %w", result.Shortfall, domain.ErrClawbackShortfall)
	}
	l.logger.Info("transaction refunded",
		zap.Int64("transaction_id", transactionID),
		zap.String("reason", reason))
	return nil
}

func (l *Ledger) GetByID(ctx context.Context, transactionID int64) (*domain.Transaction, error) {
	return l.store.GetTransactionByID(ctx, transactionID)
}

func (l *Ledger) GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return l.store.GetTransactionByOrderID(ctx, orderID)
}

func (l *Ledger) ListByPayer(ctx context.Context, payerID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return l.store.ListTransactionsByPayer(ctx, payerID, limit, offset)
}

func (l *Ledger) AttachSnapToken(ctx context.Context, transactionID int64, token string) error {
	return l.store.SetSnapToken(ctx, transactionID, token)
}
