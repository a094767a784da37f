package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeEventPayment TransactionType = "event_payment"
	TransactionTypePremium      TransactionType = "premium_subscription"
	TransactionTypePayout       TransactionType = "payout"
	TransactionTypeRefund       TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusPaid      TransactionStatus = "paid"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusExpired   TransactionStatus = "expired"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// Transaction is one purchase or subscription attempt. OrderID is the
// externally visible reference and the idempotency key for the gateway.
// Amounts are frozen once the transaction leaves pending.
type Transaction struct {
	ID             int64             `json:"id"`
	OrderID        string            `json:"order_id"`
	Type           TransactionType   `json:"type"`
	PayerID        int64             `json:"payer_id"`
	OrganizerID    *int64            `json:"organizer_id,omitempty"`
	RegistrationID *int64            `json:"registration_id,omitempty"`
	GrossAmount    Money             `json:"gross_amount"`
	PlatformFee    Money             `json:"platform_fee"`
	NetAmount      Money             `json:"net_amount"`
	FeePercentage  decimal.Decimal   `json:"fee_percentage"`
	Status         TransactionStatus `json:"status"`
	PaymentType    *string           `json:"payment_type,omitempty"`
	GatewayRef     *string           `json:"gateway_ref,omitempty"`
	SnapToken      *string           `json:"snap_token,omitempty"`
	FailureReason  *string           `json:"failure_reason,omitempty"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// CanTransitionTo encodes the transaction state machine:
// pending -> {paid, failed, expired, cancelled}; paid -> refunded.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		switch next {
		case TransactionStatusPaid, TransactionStatusFailed,
			TransactionStatusExpired, TransactionStatusCancelled:
			return true
		}
	case TransactionStatusPaid:
		return next == TransactionStatusRefunded
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionStatusFailed, TransactionStatusExpired,
		TransactionStatusCancelled, TransactionStatusRefunded:
		return true
	}
	return false
}
