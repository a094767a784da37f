package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed implementation of LedgerStore, BalanceStore and
// WithdrawalStore. Cross-table settlement paths share one db transaction.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

var (
	_ LedgerStore     = (*Store)(nil)
	_ BalanceStore    = (*Store)(nil)
	_ WithdrawalStore = (*Store)(nil)
)
