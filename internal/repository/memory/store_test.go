package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"settlement-service/internal/domain"
)

func TestDebitIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.Debit(ctx, 1, 100); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("debit with no balance: got %v, want ErrInsufficientBalance", err)
	}

	if err := s.Credit(ctx, 1, 500); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := s.Debit(ctx, 1, 501); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("overdraft debit: got %v, want ErrInsufficientBalance", err)
	}
	if err := s.Debit(ctx, 1, 500); err != nil {
		t.Errorf("exact-balance debit: %v", err)
	}

	b, err := s.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if b.Available != 0 {
		t.Errorf("available: got %d, want 0", b.Available)
	}
	if b.TotalEarnings != 500 {
		t.Errorf("total earnings: got %d, want 500 (debit must not reduce it)", b.TotalEarnings)
	}
}

func TestCreditRejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.Credit(ctx, 1, 0); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero credit: got %v, want ErrInvalidAmount", err)
	}
	if err := s.Debit(ctx, 1, -5); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("negative debit: got %v, want ErrInvalidAmount", err)
	}
}

func TestCreateWithHoldAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.Credit(ctx, 1, 30000); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	w := &domain.Withdrawal{
		Code:    "WD-TEST",
		OwnerID: 1,
		Amount:  50000,
		Status:  domain.WithdrawalStatusPending,
	}
	if err := s.CreateWithHold(ctx, w); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("CreateWithHold over balance: got %v, want ErrInsufficientBalance", err)
	}
	if w.ID != 0 {
		t.Error("withdrawal got an id despite failed hold")
	}
	b, _ := s.GetBalance(ctx, 1)
	if b.Available != 30000 {
		t.Errorf("available after failed hold: got %d, want 30000", b.Available)
	}
}

func TestDuplicateOrderIDRejected(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	open := func() error {
		return s.CreateTransaction(ctx, &domain.Transaction{
			OrderID:     "ORD-DUP",
			Type:        domain.TransactionTypePremium,
			PayerID:     1,
			GrossAmount: 1000,
			NetAmount:   900,
			PlatformFee: 100,
			Status:      domain.TransactionStatusPending,
		}, nil)
	}
	if err := open(); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := open(); err == nil {
		t.Error("duplicate order_id accepted")
	}
}

// TestConcurrentHoldsNeverOverdraw hammers CreateWithHold from many
// goroutines; the sum of successful holds can never exceed the balance.
func TestConcurrentHoldsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.Credit(ctx, 1, 100000); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	const workers = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		held domain.Money
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := &domain.Withdrawal{
				Code:    fmt.Sprintf("WD-%d", i),
				OwnerID: 1,
				Amount:  30000,
				Status:  domain.WithdrawalStatusPending,
			}
			if err := s.CreateWithHold(ctx, w); err == nil {
				mu.Lock()
				held += w.Amount
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if held != 90000 {
		t.Errorf("held total: got %d, want 90000 (three holds of 30000)", held)
	}
	b, _ := s.GetBalance(ctx, 1)
	if b.Available != 10000 {
		t.Errorf("available: got %d, want 10000", b.Available)
	}
}

func TestListTransactionsPagination(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i := 0; i < 5; i++ {
		err := s.CreateTransaction(ctx, &domain.Transaction{
			OrderID:     fmt.Sprintf("ORD-%d", i),
			Type:        domain.TransactionTypePremium,
			PayerID:     1,
			GrossAmount: 1000,
			NetAmount:   900,
			PlatformFee: 100,
			Status:      domain.TransactionStatusPending,
		}, nil)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, total, err := s.ListTransactionsByPayer(ctx, 1, 2, 0)
	if err != nil {
		t.Fatalf("ListTransactionsByPayer: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Errorf("first page: total=%d len=%d, want 5/2", total, len(page))
	}

	page, total, err = s.ListTransactionsByPayer(ctx, 1, 2, 4)
	if err != nil {
		t.Fatalf("ListTransactionsByPayer offset 4: %v", err)
	}
	if total != 5 || len(page) != 1 {
		t.Errorf("last page: total=%d len=%d, want 5/1", total, len(page))
	}

	_, total, err = s.ListTransactionsByPayer(ctx, 1, 2, 10)
	if err != nil {
		t.Fatalf("ListTransactionsByPayer past end: %v", err)
	}
	if total != 5 {
		t.Errorf("total past end: got %d, want 5", total)
	}
}
