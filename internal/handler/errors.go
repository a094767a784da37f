package handler

import (
	"errors"
	"net/http"

	"settlement-service/internal/domain"
)

// mapError converts ledger errors into stable user-facing messages. Raw
// internal errors never leave the service.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid amount"
	case errors.Is(err, domain.ErrBelowMinimumWithdrawal):
		return http.StatusBadRequest, "amount is below the minimum withdrawal"
	case errors.Is(err, domain.ErrBankAccountUnverified):
		return http.StatusBadRequest, "bank account must be verified before withdrawing"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusBadRequest, "insufficient balance"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "operation not allowed in the current status"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
