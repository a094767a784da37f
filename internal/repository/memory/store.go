// Package memory provides mutex-guarded in-memory implementations of the
// repository interfaces. They mirror the conditional-update semantics of the
// postgres store so lifecycle and concurrency behavior can be exercised
// without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"settlement-service/internal/domain"
	"settlement-service/internal/repository"
)

type Store struct {
	mu sync.Mutex

	transactions map[int64]*domain.Transaction
	byOrderID    map[string]int64
	commissions  map[int64][]*domain.Commission
	balances     map[int64]*domain.BalanceAccount
	withdrawals  map[int64]*domain.Withdrawal
	bankAccounts map[int64]*domain.BankAccount

	nextTransactionID int64
	nextCommissionID  int64
	nextWithdrawalID  int64
}

func NewStore() *Store {
	return &Store{
		transactions: make(map[int64]*domain.Transaction),
		byOrderID:    make(map[string]int64),
		commissions:  make(map[int64][]*domain.Commission),
		balances:     make(map[int64]*domain.BalanceAccount),
		withdrawals:  make(map[int64]*domain.Withdrawal),
		bankAccounts: make(map[int64]*domain.BankAccount),
	}
}

var (
	_ repository.LedgerStore     = (*Store)(nil)
	_ repository.BalanceStore    = (*Store)(nil)
	_ repository.WithdrawalStore = (*Store)(nil)
)

// PutBankAccount seeds a payout destination. Bank accounts are owned by an
// external service; the store only holds what the ledger reads.
func (s *Store) PutBankAccount(b *domain.BankAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.bankAccounts[b.ID] = &cp
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	cp := *t
	return &cp
}

// ----------------------------------------------------------------------------
// LedgerStore
// ----------------------------------------------------------------------------

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction, fees []*domain.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byOrderID[t.OrderID]; exists {
		return fmt.Errorf("order_id %s already exists", t.OrderID)
	}

	s.nextTransactionID++
	t.ID = s.nextTransactionID
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.transactions[t.ID] = copyTransaction(t)
	s.byOrderID[t.OrderID] = t.ID

	for _, fee := range fees {
		s.nextCommissionID++
		fee.ID = s.nextCommissionID
		fee.TransactionID = t.ID
		fee.CreatedAt = now
		cp := *fee
		s.commissions[t.ID] = append(s.commissions[t.ID], &cp)
	}
	return nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyTransaction(t), nil
}

func (s *Store) GetTransactionByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byOrderID[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyTransaction(s.transactions[id]), nil
}

func (s *Store) ListTransactionsByPayer(ctx context.Context, payerID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []domain.Transaction
	for _, t := range s.transactions {
		if t.PayerID == payerID {
			all = append(all, *t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *Store) SetSnapToken(ctx context.Context, id int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.SnapToken = &token
	t.UpdatedAt = time.Now()
	return nil
}

func (s *Store) SettleTransaction(ctx context.Context, id int64, gatewayRef, paymentType string, paidAt time.Time) (repository.SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return repository.SettlementResult{}, domain.ErrNotFound
	}
	if t.Status == domain.TransactionStatusPaid {
		return repository.SettlementResult{Applied: false}, nil
	}
	if t.Status != domain.TransactionStatusPending {
		return repository.SettlementResult{}, fmt.Errorf("settle from %s: %w", t.Status, domain.ErrInvalidTransition)
	}

	t.Status = domain.TransactionStatusPaid
	t.GatewayRef = &gatewayRef
	if paymentType != "" {
		t.PaymentType = &paymentType
	}
	t.PaidAt = &paidAt
	t.UpdatedAt = time.Now()

	for _, c := range s.commissions[id] {
		if c.Status == domain.CommissionStatusPending {
			c.Status = domain.CommissionStatusPaid
			at := paidAt
			c.PaidAt = &at
		}
	}

	credited := domain.Money(0)
	if t.Type == domain.TransactionTypeEventPayment && t.OrganizerID != nil {
		b := s.balanceLocked(*t.OrganizerID)
		b.Available += t.NetAmount
		b.TotalEarnings += t.NetAmount
		b.TotalFeesPaid += t.PlatformFee
		b.UpdatedAt = time.Now()
		credited = t.NetAmount
	}
	return repository.SettlementResult{Applied: true, Credited: credited}, nil
}

func (s *Store) CloseTransaction(ctx context.Context, id int64, status domain.TransactionStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.Status == status {
		return nil
	}
	if t.Status != domain.TransactionStatusPending {
		return fmt.Errorf("close from %s: %w", t.Status, domain.ErrInvalidTransition)
	}
	t.Status = status
	t.FailureReason = &reason
	t.UpdatedAt = time.Now()
	return nil
}

func (s *Store) RefundTransaction(ctx context.Context, id int64, reason string) (repository.RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return repository.RefundResult{}, domain.ErrNotFound
	}
	if t.Status != domain.TransactionStatusPaid {
		return repository.RefundResult{}, fmt.Errorf("refund from %s: %w", t.Status, domain.ErrInvalidTransition)
	}

	t.Status = domain.TransactionStatusRefunded
	t.FailureReason = &reason
	t.UpdatedAt = time.Now()

	result := repository.RefundResult{ClawedBack: true}
	if t.Type == domain.TransactionTypeEventPayment && t.OrganizerID != nil {
		b := s.balanceLocked(*t.OrganizerID)
		if b.Available >= t.NetAmount {
			b.Available -= t.NetAmount
			b.UpdatedAt = time.Now()
		} else {
			result.ClawedBack = false
			result.Shortfall = t.NetAmount - b.Available
			note := fmt.Sprintf("%s (clawback shortfall: %d)", reason, result.Shortfall)
			t.FailureReason = &note
		}
	}
	return result, nil
}

func (s *Store) ListCommissionsByTransaction(ctx context.Context, transactionID int64) ([]domain.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []domain.Commission
	for _, c := range s.commissions[transactionID] {
		list = append(list, *c)
	}
	return list, nil
}

// ----------------------------------------------------------------------------
// BalanceStore
// ----------------------------------------------------------------------------

func (s *Store) balanceLocked(ownerID int64) *domain.BalanceAccount {
	b, ok := s.balances[ownerID]
	if !ok {
		b = &domain.BalanceAccount{OwnerID: ownerID, UpdatedAt: time.Now()}
		s.balances[ownerID] = b
	}
	return b
}

func (s *Store) GetBalance(ctx context.Context, ownerID int64) (*domain.BalanceAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) Credit(ctx context.Context, ownerID int64, amount domain.Money) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.balanceLocked(ownerID)
	b.Available += amount
	b.TotalEarnings += amount
	b.UpdatedAt = time.Now()
	return nil
}

func (s *Store) Debit(ctx context.Context, ownerID int64, amount domain.Money) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[ownerID]
	if !ok || b.Available < amount {
		return domain.ErrInsufficientBalance
	}
	b.Available -= amount
	b.UpdatedAt = time.Now()
	return nil
}

// ----------------------------------------------------------------------------
// WithdrawalStore
// ----------------------------------------------------------------------------

func (s *Store) CreateWithHold(ctx context.Context, w *domain.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[w.OwnerID]
	if !ok || b.Available < w.Amount {
		return domain.ErrInsufficientBalance
	}
	b.Available -= w.Amount
	b.UpdatedAt = time.Now()

	s.nextWithdrawalID++
	w.ID = s.nextWithdrawalID
	now := time.Now()
	w.RequestedAt = now
	w.UpdatedAt = now
	cp := *w
	s.withdrawals[w.ID] = &cp
	return nil
}

func (s *Store) GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *Store) GetWithdrawalByCode(ctx context.Context, code string) (*domain.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.withdrawals {
		if w.Code == code {
			cp := *w
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListWithdrawalsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Withdrawal, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []domain.Withdrawal
	for _, w := range s.withdrawals {
		if w.OwnerID == ownerID {
			all = append(all, *w)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RequestedAt.After(all[j].RequestedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *Store) Approve(ctx context.Context, id, adminID int64, notes string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return domain.ErrNotFound
	}
	if w.Status != domain.WithdrawalStatusPending {
		return fmt.Errorf("withdrawal %s -> approved: %w", w.Status, domain.ErrInvalidTransition)
	}
	w.Status = domain.WithdrawalStatusApproved
	w.ApprovedBy = &adminID
	if notes != "" {
		w.Notes = &notes
	}
	t := at
	w.ApprovedAt = &t
	w.UpdatedAt = time.Now()
	return nil
}

func (s *Store) RejectAndRelease(ctx context.Context, id, adminID int64, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return domain.ErrNotFound
	}
	if w.Status != domain.WithdrawalStatusPending && w.Status != domain.WithdrawalStatusApproved {
		return fmt.Errorf("withdrawal %s -> rejected: %w", w.Status, domain.ErrInvalidTransition)
	}
	w.Status = domain.WithdrawalStatusRejected
	w.RejectedBy = &adminID
	w.RejectReason = &reason
	w.UpdatedAt = time.Now()

	b := s.balanceLocked(w.OwnerID)
	b.Available += w.Amount
	b.UpdatedAt = time.Now()
	return nil
}

func (s *Store) MarkProcessed(ctx context.Context, id int64, transferProof string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return domain.ErrNotFound
	}
	if w.Status != domain.WithdrawalStatusApproved {
		return fmt.Errorf("withdrawal %s -> processed: %w", w.Status, domain.ErrInvalidTransition)
	}
	w.Status = domain.WithdrawalStatusProcessed
	w.TransferProof = &transferProof
	t := at
	w.ProcessedAt = &t
	w.UpdatedAt = time.Now()
	return nil
}

func (s *Store) MarkCompleted(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return domain.ErrNotFound
	}
	if w.Status != domain.WithdrawalStatusProcessed {
		return fmt.Errorf("withdrawal %s -> completed: %w", w.Status, domain.ErrInvalidTransition)
	}
	w.Status = domain.WithdrawalStatusCompleted
	t := at
	w.CompletedAt = &t
	w.UpdatedAt = time.Now()
	return nil
}

func (s *Store) GetBankAccount(ctx context.Context, id int64) (*domain.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bankAccounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}
