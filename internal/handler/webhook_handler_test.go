package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"settlement-service/internal/domain"
	"settlement-service/internal/gateway"
	"settlement-service/internal/repository/memory"
	"settlement-service/internal/settings"
	"settlement-service/internal/usecase/commission"
	"settlement-service/internal/usecase/ledger"
	"settlement-service/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testServerKey = "SB-Mid-server-test-key"

func newWebhookFixture(t *testing.T) (*WebhookHandler, *ledger.Ledger, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	cfg := settings.Static{
		Fee:           decimal.RequireFromString("10"),
		MinWithdrawal: 50000,
		AdminFee:      5000,
	}
	engine := commission.NewEngine(store, zap.NewNop())
	l := ledger.New(store, engine, cfg, id.NewGenerator(), zap.NewNop())
	return NewWebhookHandler(l, testServerKey, zap.NewNop()), l, store
}

func openPendingPayment(t *testing.T, l *ledger.Ledger) *domain.Transaction {
	t.Helper()
	organizer := int64(7)
	tx, err := l.Open(context.Background(), ledger.OpenParams{
		Type:        domain.TransactionTypeEventPayment,
		PayerID:     3,
		OrganizerID: &organizer,
		GrossAmount: 100000,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return tx
}

func postNotification(t *testing.T, h *WebhookHandler, n gateway.Notification) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal notification: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/payments/notification", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleNotification(rec, req)
	return rec
}

func signedNotification(orderID, status string) gateway.Notification {
	n := gateway.Notification{
		OrderID:           orderID,
		TransactionStatus: status,
		StatusCode:        "200",
		GrossAmount:       "100000.00",
		PaymentType:       "qris",
		TransactionID:     "mt-0001",
	}
	n.Sign(testServerKey)
	return n
}

func TestNotificationSettlesTransaction(t *testing.T) {
	h, l, store := newWebhookFixture(t)
	tx := openPendingPayment(t, l)

	rec := postNotification(t, h, signedNotification(tx.OrderID, gateway.StatusSettlement))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	got, err := store.GetTransactionByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("GetTransactionByID: %v", err)
	}
	if got.Status != domain.TransactionStatusPaid {
		t.Errorf("transaction status: got %s, want paid", got.Status)
	}
	if got.GatewayRef == nil || *got.GatewayRef != "mt-0001" {
		t.Error("gateway reference not recorded")
	}

	b, err := store.GetBalance(context.Background(), *tx.OrganizerID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if b.Available != 90000 {
		t.Errorf("organizer balance: got %d, want 90000", b.Available)
	}
}

func TestNotificationRedeliveryCreditsOnce(t *testing.T) {
	h, l, store := newWebhookFixture(t)
	tx := openPendingPayment(t, l)
	n := signedNotification(tx.OrderID, gateway.StatusSettlement)

	for i := 0; i < 4; i++ {
		rec := postNotification(t, h, n)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: status %d", i, rec.Code)
		}
	}

	b, _ := store.GetBalance(context.Background(), *tx.OrganizerID)
	if b.Available != 90000 || b.TotalEarnings != 90000 {
		t.Errorf("balance after redeliveries: available=%d total=%d, want 90000/90000",
			b.Available, b.TotalEarnings)
	}
}

func TestNotificationBadSignature(t *testing.T) {
	h, l, store := newWebhookFixture(t)
	tx := openPendingPayment(t, l)

	n := signedNotification(tx.OrderID, gateway.StatusSettlement)
	n.SignatureKey = "deadbeef"

	rec := postNotification(t, h, n)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rec.Code)
	}

	got, _ := store.GetTransactionByID(context.Background(), tx.ID)
	if got.Status != domain.TransactionStatusPending {
		t.Errorf("transaction status changed on forged notification: %s", got.Status)
	}
}

func TestNotificationTamperedAmount(t *testing.T) {
	h, l, _ := newWebhookFixture(t)
	tx := openPendingPayment(t, l)

	// Signature was computed over the original amount.
	n := signedNotification(tx.OrderID, gateway.StatusSettlement)
	n.GrossAmount = "1.00"

	rec := postNotification(t, h, n)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
}

func TestNotificationUnknownOrder(t *testing.T) {
	h, _, _ := newWebhookFixture(t)

	rec := postNotification(t, h, signedNotification("ORD-UNKNOWN", gateway.StatusSettlement))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestNotificationUndecodableBody(t *testing.T) {
	h, _, _ := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/payments/notification", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.HandleNotification(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestNotificationStatusMapping(t *testing.T) {
	cases := []struct {
		status string
		fraud  string
		want   domain.TransactionStatus
	}{
		{gateway.StatusCapture, gateway.FraudAccept, domain.TransactionStatusPaid},
		{gateway.StatusCapture, gateway.FraudDeny, domain.TransactionStatusFailed},
		{gateway.StatusCapture, gateway.FraudChallenge, domain.TransactionStatusPending},
		{gateway.StatusDeny, "", domain.TransactionStatusFailed},
		{gateway.StatusExpire, "", domain.TransactionStatusExpired},
		{gateway.StatusCancel, "", domain.TransactionStatusCancelled},
		{gateway.StatusPending, "", domain.TransactionStatusPending},
		{"unheard_of_status", "", domain.TransactionStatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.status+"_"+tc.fraud, func(t *testing.T) {
			h, l, store := newWebhookFixture(t)
			tx := openPendingPayment(t, l)

			n := signedNotification(tx.OrderID, tc.status)
			n.FraudStatus = tc.fraud
			n.Sign(testServerKey)

			rec := postNotification(t, h, n)
			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
			}

			got, _ := store.GetTransactionByID(context.Background(), tx.ID)
			if got.Status != tc.want {
				t.Errorf("transaction status: got %s, want %s", got.Status, tc.want)
			}
		})
	}
}

func TestNotificationRefundClawsBack(t *testing.T) {
	h, l, store := newWebhookFixture(t)
	tx := openPendingPayment(t, l)

	rec := postNotification(t, h, signedNotification(tx.OrderID, gateway.StatusSettlement))
	if rec.Code != http.StatusOK {
		t.Fatalf("settlement: status %d", rec.Code)
	}

	rec = postNotification(t, h, signedNotification(tx.OrderID, gateway.StatusRefund))
	if rec.Code != http.StatusOK {
		t.Fatalf("refund: status %d (body %s)", rec.Code, rec.Body.String())
	}

	got, _ := store.GetTransactionByID(context.Background(), tx.ID)
	if got.Status != domain.TransactionStatusRefunded {
		t.Errorf("transaction status: got %s, want refunded", got.Status)
	}
	b, _ := store.GetBalance(context.Background(), *tx.OrganizerID)
	if b.Available != 0 {
		t.Errorf("organizer balance after refund: got %d, want 0", b.Available)
	}
}

func TestNotificationRefundShortfallAcknowledged(t *testing.T) {
	h, l, store := newWebhookFixture(t)
	tx := openPendingPayment(t, l)
	ctx := context.Background()

	postNotification(t, h, signedNotification(tx.OrderID, gateway.StatusSettlement))

	// Drain the organizer's balance as if it had been withdrawn.
	if err := store.Debit(ctx, *tx.OrganizerID, 90000); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	rec := postNotification(t, h, signedNotification(tx.OrderID, gateway.StatusRefund))
	if rec.Code != http.StatusOK {
		t.Fatalf("refund with shortfall: status %d (body %s)", rec.Code, rec.Body.String())
	}

	got, _ := store.GetTransactionByID(ctx, tx.ID)
	if got.Status != domain.TransactionStatusRefunded {
		t.Errorf("transaction status: got %s, want refunded", got.Status)
	}
	b, _ := store.GetBalance(ctx, *tx.OrganizerID)
	if b.Available != 0 {
		t.Errorf("balance went negative or was credited: %d", b.Available)
	}
}
