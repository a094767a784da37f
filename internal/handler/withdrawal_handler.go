package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"settlement-service/internal/domain"
	"settlement-service/internal/usecase/withdrawal"
	"settlement-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WithdrawalHandler struct {
	processor *withdrawal.Processor
	logger    *zap.Logger
}

func NewWithdrawalHandler(processor *withdrawal.Processor, logger *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{processor: processor, logger: logger}
}

type requestWithdrawalRequest struct {
	OwnerID       int64  `json:"owner_id"`
	BankAccountID int64  `json:"bank_account_id"`
	Amount        int64  `json:"amount"`
	Notes         string `json:"notes,omitempty"`
}

func (h *WithdrawalHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req requestWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wd, err := h.processor.Request(r.Context(), req.OwnerID, req.BankAccountID, domain.Money(req.Amount), req.Notes)
	if err != nil {
		status, msg := mapError(err)
		h.logger.Warn("withdrawal request rejected",
			zap.Int64("owner_id", req.OwnerID),
			zap.Error(err))
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusCreated, wd)
}

// adminActionRequest carries the acting admin explicitly; actor identity is
// never read from ambient request state.
type adminActionRequest struct {
	AdminID int64  `json:"admin_id"`
	Notes   string `json:"notes,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (h *WithdrawalHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.withdrawalID(w, r)
	if !ok {
		return
	}
	var req adminActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AdminID == 0 {
		response.Error(w, http.StatusBadRequest, "admin_id is required")
		return
	}

	if err := h.processor.Approve(r.Context(), id, req.AdminID, req.Notes); err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *WithdrawalHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.withdrawalID(w, r)
	if !ok {
		return
	}
	var req adminActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AdminID == 0 {
		response.Error(w, http.StatusBadRequest, "admin_id is required")
		return
	}
	if req.Reason == "" {
		response.Error(w, http.StatusBadRequest, "reason is required")
		return
	}

	if err := h.processor.Reject(r.Context(), id, req.AdminID, req.Reason); err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type processWithdrawalRequest struct {
	TransferProof string `json:"transfer_proof"`
}

func (h *WithdrawalHandler) ProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.withdrawalID(w, r)
	if !ok {
		return
	}
	var req processWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransferProof == "" {
		response.Error(w, http.StatusBadRequest, "transfer_proof is required")
		return
	}

	if err := h.processor.MarkProcessed(r.Context(), id, req.TransferProof); err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *WithdrawalHandler) CompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.withdrawalID(w, r)
	if !ok {
		return
	}
	if err := h.processor.MarkCompleted(r.Context(), id); err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// GetWithdrawal resolves a withdrawal by numeric id or by its WD- code.
func (h *WithdrawalHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "withdrawalID")

	var (
		wd  *domain.Withdrawal
		err error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		wd, err = h.processor.Get(r.Context(), id)
	} else {
		wd, err = h.processor.GetByCode(r.Context(), ref)
	}
	if err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusOK, wd)
}

func (h *WithdrawalHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("owner"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, total, err := h.processor.ListByOwner(r.Context(), ownerID, limit, offset)
	if err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusOK, response.Paginated{Items: list, Total: total})
}

func (h *WithdrawalHandler) withdrawalID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "withdrawalID"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid withdrawal id")
		return 0, false
	}
	return id, true
}
