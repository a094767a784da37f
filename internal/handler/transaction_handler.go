package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"settlement-service/internal/domain"
	"settlement-service/internal/gateway"
	"settlement-service/internal/repository"
	"settlement-service/internal/usecase/commission"
	"settlement-service/internal/usecase/ledger"
	"settlement-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	ledger      *ledger.Ledger
	commissions *commission.Engine
	balances    repository.BalanceStore
	charges     *gateway.Client
	logger      *zap.Logger
}

func NewTransactionHandler(l *ledger.Ledger, commissions *commission.Engine, balances repository.BalanceStore, charges *gateway.Client, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		ledger:      l,
		commissions: commissions,
		balances:    balances,
		charges:     charges,
		logger:      logger,
	}
}

type openTransactionRequest struct {
	Type           string `json:"type"`
	PayerID        int64  `json:"payer_id"`
	OrganizerID    *int64 `json:"organizer_id,omitempty"`
	RegistrationID *int64 `json:"registration_id,omitempty"`
	GrossAmount    int64  `json:"gross_amount"`
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	CustomerPhone  string `json:"customer_phone,omitempty"`
	ItemName       string `json:"item_name,omitempty"`
}

// OpenTransaction opens a pending transaction and asks the gateway for a
// hosted-checkout token. The token is returned for client consumption; the
// transaction stays pending until a verified notification settles it.
func (h *TransactionHandler) OpenTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req openTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.ledger.Open(ctx, ledger.OpenParams{
		Type:           domain.TransactionType(req.Type),
		PayerID:        req.PayerID,
		OrganizerID:    req.OrganizerID,
		RegistrationID: req.RegistrationID,
		GrossAmount:    domain.Money(req.GrossAmount),
	})
	if err != nil {
		status, msg := mapError(err)
		h.logger.Warn("open transaction rejected", zap.Error(err))
		response.Error(w, status, msg)
		return
	}

	itemName := req.ItemName
	if itemName == "" {
		itemName = string(t.Type)
	}
	charge, err := h.charges.CreateCharge(ctx, gateway.ChargeRequest{
		OrderID:     t.OrderID,
		GrossAmount: t.GrossAmount.Int64(),
		Customer: gateway.ChargeCustomer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
		Items: []gateway.ChargeItem{
			{ID: t.OrderID, Name: itemName, Price: t.GrossAmount.Int64(), Quantity: 1},
		},
	})
	if err != nil {
		// The pending transaction stands; the caller can retry checkout or
		// let the gateway-side expiry close it.
		h.logger.Error("charge creation failed",
			zap.String("order_id", t.OrderID),
			zap.Error(err))
		response.Error(w, http.StatusBadGateway, "payment gateway unavailable")
		return
	}

	if err := h.ledger.AttachSnapToken(ctx, t.ID, charge.Token); err != nil {
		h.logger.Error("failed to store snap token",
			zap.String("order_id", t.OrderID),
			zap.Error(err))
	}

	response.JSON(w, http.StatusCreated, map[string]interface{}{
		"transaction":  t,
		"snap_token":   charge.Token,
		"redirect_url": charge.RedirectURL,
	})
}

// GetTransactionStatus returns status and amounts for polling callers.
func (h *TransactionHandler) GetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	t, err := h.ledger.GetByOrderID(r.Context(), orderID)
	if err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"order_id":     t.OrderID,
		"status":       t.Status,
		"gross_amount": t.GrossAmount,
		"platform_fee": t.PlatformFee,
		"net_amount":   t.NetAmount,
		"paid_at":      t.PaidAt,
	})
}

// ListCommissions returns the fee line items recorded for a transaction.
func (h *TransactionHandler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	t, err := h.ledger.GetByOrderID(r.Context(), orderID)
	if err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}

	fees, err := h.commissions.ListByTransaction(r.Context(), t.ID)
	if err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusOK, fees)
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	payerID, err := strconv.ParseInt(r.URL.Query().Get("payer"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "payer query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, total, err := h.ledger.ListByPayer(r.Context(), payerID, limit, offset)
	if err != nil {
		status, msg := mapError(err)
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusOK, response.Paginated{Items: list, Total: total})
}

func (h *TransactionHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid owner id")
		return
	}

	b, err := h.balances.GetBalance(r.Context(), ownerID)
	if err != nil {
		if status, msg := mapError(err); status != http.StatusNotFound {
			response.Error(w, status, msg)
			return
		}
		// No credits yet reads as a zero balance, not an error.
		b = &domain.BalanceAccount{OwnerID: ownerID}
	}
	response.JSON(w, http.StatusOK, b)
}
