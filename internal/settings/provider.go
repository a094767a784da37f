// Package settings supplies platform configuration the ledger reads but never
// writes: fee percentage, minimum withdrawal and the flat admin withdrawal
// fee. Transactions snapshot these values at creation time, so a bounded
// cache staleness window is acceptable here.
package settings

import (
	"context"

	"settlement-service/internal/domain"

	"github.com/shopspring/decimal"
)

type Provider interface {
	FeePercentage(ctx context.Context) (decimal.Decimal, error)
	MinimumWithdrawal(ctx context.Context) (domain.Money, error)
	AdminWithdrawalFee(ctx context.Context) (domain.Money, error)
}

// Static returns fixed values. Used in tests and env-only deployments.
type Static struct {
	Fee           decimal.Decimal
	MinWithdrawal domain.Money
	AdminFee      domain.Money
}

func (s Static) FeePercentage(ctx context.Context) (decimal.Decimal, error) {
	return s.Fee, nil
}

func (s Static) MinimumWithdrawal(ctx context.Context) (domain.Money, error) {
	return s.MinWithdrawal, nil
}

func (s Static) AdminWithdrawalFee(ctx context.Context) (domain.Money, error) {
	return s.AdminFee, nil
}
