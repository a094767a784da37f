package withdrawal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"settlement-service/internal/domain"
	"settlement-service/internal/repository/memory"
	"settlement-service/internal/settings"
	"settlement-service/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	testOwner = int64(42)
	testBank  = int64(9)
)

func newTestProcessor(t *testing.T, available domain.Money) (*Processor, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.PutBankAccount(&domain.BankAccount{
		ID:            testBank,
		OwnerID:       testOwner,
		BankName:      "BCA",
		AccountNumber: "1234567890",
		AccountName:   "Organizer",
		IsVerified:    true,
	})
	if available > 0 {
		if err := store.Credit(context.Background(), testOwner, available); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
	cfg := settings.Static{
		Fee:           decimal.RequireFromString("10"),
		MinWithdrawal: 50000,
		AdminFee:      5000,
	}
	return NewProcessor(store, cfg, id.NewGenerator(), zap.NewNop()), store
}

func TestRequestHoldsFunds(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProcessor(t, 100000)

	w, err := p.Request(ctx, testOwner, testBank, 60000, "payout please")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if w.Status != domain.WithdrawalStatusPending {
		t.Errorf("status: got %s, want pending", w.Status)
	}
	if w.AdminFee != 5000 || w.NetAmount != 55000 {
		t.Errorf("fee split: admin_fee=%d net=%d, want 5000/55000", w.AdminFee, w.NetAmount)
	}
	if w.Code == "" {
		t.Error("withdrawal code not generated")
	}

	b, _ := store.GetBalance(ctx, testOwner)
	if b.Available != 40000 {
		t.Errorf("available after hold: got %d, want 40000", b.Available)
	}
}

func TestRequestInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProcessor(t, 30000)
	// Floor the minimum below the balance so the balance check is what trips.
	p.settings = settings.Static{MinWithdrawal: 10000, AdminFee: 1000}

	_, err := p.Request(ctx, testOwner, testBank, 50000, "")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("Request: got %v, want ErrInsufficientBalance", err)
	}

	// Nothing persisted, balance unchanged.
	list, total, err := store.ListWithdrawalsByOwner(ctx, testOwner, 10, 0)
	if err != nil {
		t.Fatalf("ListWithdrawalsByOwner: %v", err)
	}
	if total != 0 || len(list) != 0 {
		t.Errorf("withdrawal row persisted after failed hold: total=%d", total)
	}
	b, _ := store.GetBalance(ctx, testOwner)
	if b.Available != 30000 {
		t.Errorf("available: got %d, want unchanged 30000", b.Available)
	}
}

func TestRequestBelowMinimum(t *testing.T) {
	p, _ := newTestProcessor(t, 100000)
	_, err := p.Request(context.Background(), testOwner, testBank, 49999, "")
	if !errors.Is(err, domain.ErrBelowMinimumWithdrawal) {
		t.Errorf("Request: got %v, want ErrBelowMinimumWithdrawal", err)
	}
}

func TestRequestUnverifiedBankAccount(t *testing.T) {
	p, store := newTestProcessor(t, 100000)
	store.PutBankAccount(&domain.BankAccount{
		ID:      77,
		OwnerID: testOwner,
	})
	_, err := p.Request(context.Background(), testOwner, 77, 60000, "")
	if !errors.Is(err, domain.ErrBankAccountUnverified) {
		t.Errorf("Request: got %v, want ErrBankAccountUnverified", err)
	}
}

func TestRequestForeignBankAccount(t *testing.T) {
	p, store := newTestProcessor(t, 100000)
	store.PutBankAccount(&domain.BankAccount{
		ID:         78,
		OwnerID:    999, // someone else's account
		IsVerified: true,
	})
	_, err := p.Request(context.Background(), testOwner, 78, 60000, "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Request: got %v, want ErrNotFound", err)
	}
}

// TestRejectReturnsExactHold verifies the request/reject round trip restores
// available balance to the pre-request value with no fee leakage.
func TestRejectReturnsExactHold(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProcessor(t, 100000)

	w, err := p.Request(ctx, testOwner, testBank, 60000, "")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	b, _ := store.GetBalance(ctx, testOwner)
	if b.Available != 40000 {
		t.Fatalf("available after request: got %d, want 40000", b.Available)
	}

	if err := p.Reject(ctx, w.ID, 1, "destination mismatch"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	b, _ = store.GetBalance(ctx, testOwner)
	if b.Available != 100000 {
		t.Errorf("available after reject: got %d, want 100000", b.Available)
	}

	got, _ := store.GetWithdrawal(ctx, w.ID)
	if got.Status != domain.WithdrawalStatusRejected {
		t.Errorf("status: got %s, want rejected", got.Status)
	}
	if got.RejectedBy == nil || *got.RejectedBy != 1 {
		t.Error("rejecting admin not recorded")
	}
}

func TestRejectAfterApproveReleasesHold(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProcessor(t, 100000)

	w, _ := p.Request(ctx, testOwner, testBank, 60000, "")
	if err := p.Approve(ctx, w.ID, 1, "looks fine"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := p.Reject(ctx, w.ID, 2, "bank bounced the transfer"); err != nil {
		t.Fatalf("Reject after approve: %v", err)
	}
	b, _ := store.GetBalance(ctx, testOwner)
	if b.Available != 100000 {
		t.Errorf("available: got %d, want 100000", b.Available)
	}
}

func TestFullPayoutLifecycle(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProcessor(t, 100000)

	w, _ := p.Request(ctx, testOwner, testBank, 60000, "")
	if err := p.Approve(ctx, w.ID, 1, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := p.MarkProcessed(ctx, w.ID, "transfer-proof.png"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if err := p.MarkCompleted(ctx, w.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	got, _ := store.GetWithdrawal(ctx, w.ID)
	if got.Status != domain.WithdrawalStatusCompleted {
		t.Errorf("status: got %s, want completed", got.Status)
	}
	if got.ApprovedAt == nil || got.ProcessedAt == nil || got.CompletedAt == nil {
		t.Error("lifecycle timestamps missing")
	}

	// Held funds never come back on success.
	b, _ := store.GetBalance(ctx, testOwner)
	if b.Available != 40000 {
		t.Errorf("available after completion: got %d, want 40000", b.Available)
	}

	// Completed is terminal.
	if err := p.Reject(ctx, w.ID, 1, "too late"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Reject after completed: got %v, want ErrInvalidTransition", err)
	}
}

func TestProcessRequiresApproval(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor(t, 100000)

	w, _ := p.Request(ctx, testOwner, testBank, 60000, "")
	if err := p.MarkProcessed(ctx, w.ID, "proof"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("MarkProcessed while pending: got %v, want ErrInvalidTransition", err)
	}
	if err := p.MarkCompleted(ctx, w.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("MarkCompleted while pending: got %v, want ErrInvalidTransition", err)
	}
}

// TestConcurrentRequestsCannotOverdraw fires many simultaneous requests
// against a balance that can only cover one of them.
func TestConcurrentRequestsCannotOverdraw(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProcessor(t, 100000)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Request(ctx, testOwner, testBank, 60000, ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("concurrent requests succeeded %d times, want exactly 1", succeeded)
	}
	b, _ := store.GetBalance(ctx, testOwner)
	if b.Available < 0 {
		t.Errorf("available went negative: %d", b.Available)
	}
	if b.Available != 40000 {
		t.Errorf("available: got %d, want 40000", b.Available)
	}
}
