package repository

import (
	"context"
	"time"

	"settlement-service/internal/domain"
)

// SettlementResult reports what a settlement call actually did. A redelivered
// notification settles nothing and credits nothing but is still a success.
type SettlementResult struct {
	Applied  bool
	Credited domain.Money
}

// RefundResult reports a refund outcome. ClawedBack is false when the
// organizer balance no longer held the full net amount; the status change
// commits regardless.
type RefundResult struct {
	ClawedBack bool
	Shortfall  domain.Money
}

// LedgerStore persists transactions and their commission rows. Status flips
// are compare-and-set at the storage layer so concurrent webhook deliveries
// cannot both apply.
type LedgerStore interface {
	CreateTransaction(ctx context.Context, t *domain.Transaction, fees []*domain.Commission) error
	GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetTransactionByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
	ListTransactionsByPayer(ctx context.Context, payerID int64, limit, offset int) ([]domain.Transaction, int64, error)
	SetSnapToken(ctx context.Context, id int64, token string) error

	// SettleTransaction atomically flips pending->paid, marks the commission
	// rows paid and credits the organizer balance (event payments only).
	// Already-paid transactions return Applied=false with no error.
	SettleTransaction(ctx context.Context, id int64, gatewayRef, paymentType string, paidAt time.Time) (SettlementResult, error)

	// CloseTransaction flips pending into failed/expired/cancelled.
	CloseTransaction(ctx context.Context, id int64, status domain.TransactionStatus, reason string) error

	// RefundTransaction flips paid->refunded and conditionally claws back the
	// organizer's net amount.
	RefundTransaction(ctx context.Context, id int64, reason string) (RefundResult, error)

	ListCommissionsByTransaction(ctx context.Context, transactionID int64) ([]domain.Commission, error)
}

// BalanceStore is the single mutable aggregate per organizer. Debit is a
// conditional decrement, never check-then-write.
type BalanceStore interface {
	GetBalance(ctx context.Context, ownerID int64) (*domain.BalanceAccount, error)
	Credit(ctx context.Context, ownerID int64, amount domain.Money) error
	Debit(ctx context.Context, ownerID int64, amount domain.Money) error
}

// WithdrawalStore persists withdrawal requests. CreateWithHold removes the
// requested amount from available balance in the same storage transaction
// that inserts the row.
type WithdrawalStore interface {
	CreateWithHold(ctx context.Context, w *domain.Withdrawal) error
	GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error)
	GetWithdrawalByCode(ctx context.Context, code string) (*domain.Withdrawal, error)
	ListWithdrawalsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Withdrawal, int64, error)

	Approve(ctx context.Context, id, adminID int64, notes string, at time.Time) error
	// RejectAndRelease flips pending/approved into rejected and returns the
	// held amount to available balance, atomically.
	RejectAndRelease(ctx context.Context, id, adminID int64, reason string, at time.Time) error
	MarkProcessed(ctx context.Context, id int64, transferProof string, at time.Time) error
	MarkCompleted(ctx context.Context, id int64, at time.Time) error

	GetBankAccount(ctx context.Context, id int64) (*domain.BankAccount, error)
}
