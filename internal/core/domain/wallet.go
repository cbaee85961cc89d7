package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a user's (or vendor's) available funds.
// The balance is a 2-decimal-place fixed-point amount and is only ever
// mutated by the ledger service, paired with an appended WalletTransaction.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TransactionKind represents the direction of a ledger entry.
type TransactionKind string

const (
	TransactionCredit TransactionKind = "CREDIT"
	TransactionDebit  TransactionKind = "DEBIT"
)

// WalletTransaction is an immutable, append-only ledger entry.
// Entries are created only as a side effect of a wallet mutation and are
// never edited or deleted, so the balance is always reconstructable from
// the log.
type WalletTransaction struct {
	ID        uuid.UUID       `json:"id"`
	WalletID  uuid.UUID       `json:"wallet_id"`
	Kind      TransactionKind `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Source    string          `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
}

// Signed returns the entry amount with its direction applied.
func (t *WalletTransaction) Signed() decimal.Decimal {
	if t.Kind == TransactionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
