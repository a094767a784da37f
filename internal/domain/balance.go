package domain

import "time"

// BalanceAccount is the per-organizer wallet. Available never goes negative;
// only settlement credits and withdrawal/clawback debits may mutate it.
type BalanceAccount struct {
	OwnerID       int64     `json:"owner_id"`
	Available     Money     `json:"available"`
	TotalEarnings Money     `json:"total_earnings"`
	TotalFeesPaid Money     `json:"total_fees_paid"`
	UpdatedAt     time.Time `json:"updated_at"`
}
