package commission

import (
	"context"
	"fmt"

	"settlement-service/internal/domain"
	"settlement-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Engine computes fee line items for a transaction. Settlement of the rows is
// never a standalone entry point: it rides inside the ledger's settlement
// transaction so commission and transaction status cannot desync.
type Engine struct {
	store  repository.LedgerStore
	logger *zap.Logger
}

func NewEngine(store repository.LedgerStore, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// PlatformFee computes pct percent of gross, rounded half up on minor units.
func (e *Engine) PlatformFee(gross domain.Money, pct decimal.Decimal) domain.Money {
	return domain.PercentOf(gross, pct)
}

// LineItems builds the pending commission rows recorded alongside a new
// transaction: the platform fee, and for event payments the organizer's
// commission on the remainder. The amounts always sum to at most gross.
func (e *Engine) LineItems(t *domain.Transaction) ([]*domain.Commission, error) {
	fees := []*domain.Commission{
		{
			Type:       domain.CommissionTypePlatformFee,
			Percentage: t.FeePercentage,
			Amount:     t.PlatformFee,
			BaseAmount: t.GrossAmount,
			Status:     domain.CommissionStatusPending,
		},
	}

	if t.Type == domain.TransactionTypeEventPayment {
		fees = append(fees, &domain.Commission{
			Type:       domain.CommissionTypeEventCommission,
			Percentage: hundred.Sub(t.FeePercentage),
			Amount:     t.NetAmount,
			BaseAmount: t.GrossAmount,
			Status:     domain.CommissionStatusPending,
		})
	}

	var sum domain.Money
	for _, f := range fees {
		sum += f.Amount
	}
	if sum > t.GrossAmount {
		return nil, fmt.Errorf("commission total %d exceeds gross %d: %w",
			sum, t.GrossAmount, domain.ErrInvalidAmount)
	}
	return fees, nil
}

func (e *Engine) ListByTransaction(ctx context.Context, transactionID int64) ([]domain.Commission, error) {
	return e.store.ListCommissionsByTransaction(ctx, transactionID)
}
