package domain

import "time"

type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
	WithdrawalStatusProcessed WithdrawalStatus = "processed"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
)

// Withdrawal is a payout request against a balance account. The held amount
// leaves available balance in the same operation that creates the row and
// only a rejection ever returns it.
type Withdrawal struct {
	ID            int64            `json:"id"`
	Code          string           `json:"code"`
	OwnerID       int64            `json:"owner_id"`
	BankAccountID int64            `json:"bank_account_id"`
	Amount        Money            `json:"amount"`
	AdminFee      Money            `json:"admin_fee"`
	NetAmount     Money            `json:"net_amount"`
	Status        WithdrawalStatus `json:"status"`
	Notes         *string          `json:"notes,omitempty"`
	RejectReason  *string          `json:"reject_reason,omitempty"`
	ApprovedBy    *int64           `json:"approved_by,omitempty"`
	RejectedBy    *int64           `json:"rejected_by,omitempty"`
	TransferProof *string          `json:"transfer_proof,omitempty"`
	RequestedAt   time.Time        `json:"requested_at"`
	ApprovedAt    *time.Time       `json:"approved_at,omitempty"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// CanTransitionTo encodes the withdrawal state machine:
// pending -> {approved, rejected}; approved -> {processed, rejected};
// processed -> completed.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	switch s {
	case WithdrawalStatusPending:
		return next == WithdrawalStatusApproved || next == WithdrawalStatusRejected
	case WithdrawalStatusApproved:
		return next == WithdrawalStatusProcessed || next == WithdrawalStatusRejected
	case WithdrawalStatusProcessed:
		return next == WithdrawalStatusCompleted
	}
	return false
}

// BankAccount is owned by the account service; the ledger only reads the
// verification flag before permitting a withdrawal.
type BankAccount struct {
	ID            int64  `json:"id"`
	OwnerID       int64  `json:"owner_id"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	IsVerified    bool   `json:"is_verified"`
}
