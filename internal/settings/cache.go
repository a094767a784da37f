package settings

import (
	"context"
	"strconv"
	"time"

	"settlement-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const cacheTTL = 5 * time.Minute

// Cached wraps a Provider with a redis cache. Settings change rarely and
// every transaction snapshots them at open time, so a 5-minute staleness
// window is safe.
type Cached struct {
	source Provider
	rdb    *redis.Client
}

func NewCached(source Provider, rdb *redis.Client) *Cached {
	return &Cached{source: source, rdb: rdb}
}

func (c *Cached) FeePercentage(ctx context.Context) (decimal.Decimal, error) {
	if val, err := c.rdb.Get(ctx, "settings:"+keyFeePercentage).Result(); err == nil {
		if pct, perr := decimal.NewFromString(val); perr == nil {
			return pct, nil
		}
	}
	pct, err := c.source.FeePercentage(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	_ = c.rdb.Set(ctx, "settings:"+keyFeePercentage, pct.String(), cacheTTL).Err()
	return pct, nil
}

func (c *Cached) MinimumWithdrawal(ctx context.Context) (domain.Money, error) {
	return c.money(ctx, keyMinimumWithdrawal, c.source.MinimumWithdrawal)
}

func (c *Cached) AdminWithdrawalFee(ctx context.Context) (domain.Money, error) {
	return c.money(ctx, keyAdminFee, c.source.AdminWithdrawalFee)
}

func (c *Cached) money(ctx context.Context, key string, load func(context.Context) (domain.Money, error)) (domain.Money, error) {
	if val, err := c.rdb.Get(ctx, "settings:"+key).Result(); err == nil {
		if n, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			return domain.Money(n), nil
		}
	}
	m, err := load(ctx)
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Set(ctx, "settings:"+key, strconv.FormatInt(int64(m), 10), cacheTTL).Err()
	return m, nil
}
