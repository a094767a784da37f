package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionType string

const (
	CommissionTypePlatformFee     CommissionType = "platform_fee"
	CommissionTypeEventCommission CommissionType = "event_commission"
)

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
	CommissionStatusHold    CommissionStatus = "hold"
)

// Commission is a fee line item derived from a transaction. Rows are created
// pending together with the owning transaction and flip to paid exactly when
// the transaction settles; they are never recreated.
type Commission struct {
	ID            int64            `json:"id"`
	TransactionID int64            `json:"transaction_id"`
	Type          CommissionType   `json:"type"`
	Percentage    decimal.Decimal  `json:"percentage"`
	Amount        Money            `json:"amount"`
	BaseAmount    Money            `json:"base_amount"`
	Status        CommissionStatus `json:"status"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
