package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"settlement-service/internal/domain"
	"settlement-service/internal/gateway"
	"settlement-service/internal/usecase/ledger"
	"settlement-service/pkg/response"

	"go.uber.org/zap"
)

// WebhookHandler is the reconciliation boundary between the gateway and the
// ledger. It verifies, resolves and maps; it performs no deduplication of its
// own because every mapped ledger call is already idempotent.
type WebhookHandler struct {
	ledger    *ledger.Ledger
	serverKey string
	logger    *zap.Logger
}

func NewWebhookHandler(l *ledger.Ledger, serverKey string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		ledger:    l,
		serverKey: serverKey,
		logger:    logger,
	}
}

// HandleNotification processes a gateway payment notification. Unverifiable
// or unknown payloads are acknowledged without touching state so the gateway
// does not retry them forever.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var n gateway.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		h.logger.Warn("undecodable notification", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid notification body")
		return
	}

	if !n.VerifySignature(h.serverKey) {
		h.logger.Warn("notification signature mismatch",
			zap.String("order_id", n.OrderID),
			zap.String("transaction_status", n.TransactionStatus))
		response.Error(w, http.StatusForbidden, "invalid signature")
		return
	}

	t, err := h.ledger.GetByOrderID(ctx, n.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Likely a notification for another environment. Acknowledge so
			// the gateway stops redelivering.
			h.logger.Warn("notification for unknown order",
				zap.String("order_id", n.OrderID))
			response.Error(w, http.StatusNotFound, "unknown order")
			return
		}
		h.logger.Error("order lookup failed", zap.String("order_id", n.OrderID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("notification received",
		zap.String("order_id", n.OrderID),
		zap.String("transaction_status", n.TransactionStatus),
		zap.String("fraud_status", n.FraudStatus),
		zap.String("payment_type", n.PaymentType))

	if err := h.apply(ctx, t, n); err != nil {
		if errors.Is(err, domain.ErrClawbackShortfall) {
			// Refund recorded; shortfall goes to manual reconciliation.
			response.JSON(w, http.StatusOK, map[string]string{"status": "refunded with shortfall"})
			return
		}
		status, msg := mapError(err)
		h.logger.Error("notification could not be applied",
			zap.String("order_id", n.OrderID),
			zap.Error(err))
		response.Error(w, status, msg)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// apply maps the gateway's status vocabulary onto exactly one ledger call.
// Pending and challenged notifications leave state untouched.
func (h *WebhookHandler) apply(ctx context.Context, t *domain.Transaction, n gateway.Notification) error {
	switch n.TransactionStatus {
	case gateway.StatusCapture:
		if n.FraudStatus == gateway.FraudAccept {
			return h.ledger.MarkPaid(ctx, t.ID, n.TransactionID, n.PaymentType)
		}
		if n.FraudStatus == gateway.FraudDeny {
			return h.ledger.MarkFailed(ctx, t.ID, "capture denied by fraud check")
		}
		// challenge: wait for the follow-up notification
		return nil
	case gateway.StatusSettlement:
		return h.ledger.MarkPaid(ctx, t.ID, n.TransactionID, n.PaymentType)
	case gateway.StatusDeny:
		return h.ledger.MarkFailed(ctx, t.ID, "payment denied by gateway")
	case gateway.StatusExpire:
		return h.ledger.MarkExpired(ctx, t.ID, "checkout expired")
	case gateway.StatusCancel:
		return h.ledger.MarkCancelled(ctx, t.ID, "cancelled at gateway")
	case gateway.StatusRefund:
		return h.ledger.Refund(ctx, t.ID, "refunded at gateway")
	case gateway.StatusPending:
		return nil
	default:
		h.logger.Warn("unhandled transaction status",
			zap.String("order_id", n.OrderID),
			zap.String("transaction_status", n.TransactionStatus))
		return nil
	}
}
