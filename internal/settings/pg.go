package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"settlement-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	keyFeePercentage     = "platform_fee_percentage"
	keyMinimumWithdrawal = "minimum_withdrawal"
	keyAdminFee          = "withdrawal_admin_fee"
)

// PGProvider reads settings from the platform_settings key/value table.
type PGProvider struct {
	db *pgxpool.Pool
}

func NewPGProvider(db *pgxpool.Pool) *PGProvider {
	return &PGProvider{db: db}
}

func (p *PGProvider) value(ctx context.Context, key string) (string, error) {
	var v string
	err := p.db.QueryRow(ctx,
		`SELECT value FROM platform_settings WHERE key = $1`, key,
	).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("setting %s: %w", key, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return v, nil
}

func (p *PGProvider) FeePercentage(ctx context.Context) (decimal.Decimal, error) {
	v, err := p.value(ctx, keyFeePercentage)
	if err != nil {
		return decimal.Zero, err
	}
	pct, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", keyFeePercentage, err)
	}
	return pct, nil
}

func (p *PGProvider) MinimumWithdrawal(ctx context.Context) (domain.Money, error) {
	return p.money(ctx, keyMinimumWithdrawal)
}

func (p *PGProvider) AdminWithdrawalFee(ctx context.Context) (domain.Money, error) {
	return p.money(ctx, keyAdminFee)
}

func (p *PGProvider) money(ctx context.Context, key string) (domain.Money, error) {
	v, err := p.value(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return domain.Money(n), nil
}
