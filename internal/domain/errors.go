package domain

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound            = errors.New("not found")

	// ErrClawbackShortfall means a refund was recorded but the organizer
	// balance no longer held the full net amount, so no funds were clawed
	// back. Flagged for manual reconciliation, never fatal.
	ErrClawbackShortfall = errors.New("refund clawback shortfall")

	ErrBelowMinimumWithdrawal = errors.New("amount below minimum withdrawal")
	ErrBankAccountUnverified  = errors.New("bank account not verified")
)
