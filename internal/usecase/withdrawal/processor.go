// Package withdrawal drives the payout request lifecycle: request holds the
// funds, an admin approves or rejects, and the off-system bank transfer is
// recorded as processed then completed. Only a rejection returns held funds.
package withdrawal

import (
	"context"
	"fmt"
	"time"

	"settlement-service/internal/domain"
	"settlement-service/internal/repository"
	"settlement-service/internal/settings"
	"settlement-service/pkg/id"

	"go.uber.org/zap"
)

type Processor struct {
	store    repository.WithdrawalStore
	settings settings.Provider
	ids      *id.Generator
	logger   *zap.Logger
}

func NewProcessor(store repository.WithdrawalStore, settings settings.Provider, ids *id.Generator, logger *zap.Logger) *Processor {
	return &Processor{
		store:    store,
		settings: settings,
		ids:      ids,
		logger:   logger,
	}
}

// Request validates the amount and destination, then creates the withdrawal
// and holds the funds in one all-or-nothing operation. A failed hold leaves
// nothing persisted.
func (p *Processor) Request(ctx context.Context, ownerID, bankAccountID int64, amount domain.Money, notes string) (*domain.Withdrawal, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount %d: %w", amount, domain.ErrInvalidAmount)
	}

	minimum, err := p.settings.MinimumWithdrawal(ctx)
	if err != nil {
		return nil, fmt.Errorf("read minimum withdrawal: %w", err)
	}
	if amount < minimum {
		return nil, fmt.Errorf("amount %d below minimum %d: %w", amount, minimum, domain.ErrBelowMinimumWithdrawal)
	}

	bank, err := p.store.GetBankAccount(ctx, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("bank account %d: %w", bankAccountID, err)
	}
	if bank.OwnerID != ownerID {
		return nil, fmt.Errorf("bank account %d: %w", bankAccountID, domain.ErrNotFound)
	}
	if !bank.IsVerified {
		return nil, fmt.Errorf("bank account %d: %w", bankAccountID, domain.ErrBankAccountUnverified)
	}

	adminFee, err := p.settings.AdminWithdrawalFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("read admin fee: %w", err)
	}
	if amount <= adminFee {
		return nil, fmt.Errorf("amount %d does not cover admin fee %d: %w", amount, adminFee, domain.ErrInvalidAmount)
	}

	w := &domain.Withdrawal{
		Code:          p.ids.WithdrawalCode(),
		OwnerID:       ownerID,
		BankAccountID: bankAccountID,
		Amount:        amount,
		AdminFee:      adminFee,
		NetAmount:     amount - adminFee,
		Status:        domain.WithdrawalStatusPending,
	}
	if notes != "" {
		w.Notes = &notes
	}

	if err := p.store.CreateWithHold(ctx, w); err != nil {
		return nil, err
	}

	p.logger.Info("withdrawal requested",
		zap.String("code", w.Code),
		zap.Int64("owner_id", ownerID),
		zap.Int64("amount", amount.Int64()),
		zap.Int64("admin_fee", adminFee.Int64()))
	return w, nil
}

// Approve earmarks an already-held withdrawal. No balance change: the funds
// left available at request time.
func (p *Processor) Approve(ctx context.Context, withdrawalID, adminID int64, notes string) error {
	if err := p.store.Approve(ctx, withdrawalID, adminID, notes, time.Now()); err != nil {
		return err
	}
	p.logger.Info("withdrawal approved",
		zap.Int64("withdrawal_id", withdrawalID),
		zap.Int64("admin_id", adminID))
	return nil
}

// Reject releases the hold and closes the request. Legal from pending or
// approved, any time before the transfer is processed.
func (p *Processor) Reject(ctx context.Context, withdrawalID, adminID int64, reason string) error {
	if err := p.store.RejectAndRelease(ctx, withdrawalID, adminID, reason, time.Now()); err != nil {
		return err
	}
	p.logger.Info("withdrawal rejected",
		zap.Int64("withdrawal_id", withdrawalID),
		zap.Int64("admin_id", adminID),
		zap.String("reason", reason))
	return nil
}

// MarkProcessed records that the bank transfer was executed off-system.
func (p *Processor) MarkProcessed(ctx context.Context, withdrawalID int64, transferProof string) error {
	if err := p.store.MarkProcessed(ctx, withdrawalID, transferProof, time.Now()); err != nil {
		return err
	}
	p.logger.Info("withdrawal processed", zap.Int64("withdrawal_id", withdrawalID))
	return nil
}

func (p *Processor) MarkCompleted(ctx context.Context, withdrawalID int64) error {
	if err := p.store.MarkCompleted(ctx, withdrawalID, time.Now()); err != nil {
		return err
	}
	p.logger.Info("withdrawal completed", zap.Int64("withdrawal_id", withdrawalID))
	return nil
}

func (p *Processor) Get(ctx context.Context, withdrawalID int64) (*domain.Withdrawal, error) {
	return p.store.GetWithdrawal(ctx, withdrawalID)
}

func (p *Processor) GetByCode(ctx context.Context, code string) (*domain.Withdrawal, error) {
	return p.store.GetWithdrawalByCode(ctx, code)
}

func (p *Processor) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Withdrawal, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return p.store.ListWithdrawalsByOwner(ctx, ownerID, limit, offset)
}
