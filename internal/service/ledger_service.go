package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
)

// LedgerService is the only writer of wallet balances. Every mutation locks
// the wallet row, re-checks the balance under the lock, and appends a
// ledger entry in the same transaction, so balance and log can never
// diverge.
type LedgerService struct {
	transactor ports.DBTransactor
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerEntryRepository
	logger     zerolog.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(
	transactor ports.DBTransactor,
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerEntryRepository,
	logger zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		transactor: transactor,
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger.With().Str("component", "ledger_service").Logger(),
	}
}

// EnsureWallet returns the owner's wallet, creating an empty one on first
// use.
func (s *LedgerService) EnsureWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	wallet = &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}

	s.logger.Info().Str("owner_id", ownerID.String()).Msg("wallet created")
	return wallet, nil
}

// Credit adds funds to the owner's wallet in its own transaction.
func (s *LedgerService) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, source string) error {
	return s.inOwnTx(ctx, func(tx pgx.Tx) error {
		return s.CreditInTx(ctx, tx, ownerID, amount, source)
	})
}

// Debit removes funds from the owner's wallet in its own transaction.
func (s *LedgerService) Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, source string) error {
	return s.inOwnTx(ctx, func(tx pgx.Tx) error {
		return s.DebitInTx(ctx, tx, ownerID, amount, source)
	})
}

// CreditInTx adds funds inside a caller-owned transaction.
func (s *LedgerService) CreditInTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, source string) error {
	return s.move(ctx, tx, ownerID, amount, domain.TransactionCredit, source)
}

// DebitInTx removes funds inside a caller-owned transaction. Returns
// ErrInsufficientFunds when the locked balance cannot cover the amount.
func (s *LedgerService) DebitInTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, source string) error {
	return s.move(ctx, tx, ownerID, amount, domain.TransactionDebit, source)
}

// Balance returns the owner's current wallet balance.
func (s *LedgerService) Balance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	if wallet == nil {
		return decimal.Zero, apperror.ErrNotFound("Wallet")
	}
	return wallet.Balance, nil
}

// Statement returns the owner's ledger entries, newest first.
func (s *LedgerService) Statement(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.WalletTransaction, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return s.ledgerRepo.ListByWallet(ctx, wallet.ID, limit, offset)
}

func (s *LedgerService) inOwnTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	return nil
}

// move locks the wallet row, applies the signed amount, and appends the
// matching ledger entry.
func (s *LedgerService) move(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, kind domain.TransactionKind, source string) error {
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, tx, ownerID)
	if err != nil {
		return err
	}
	if wallet == nil {
		return apperror.ErrNotFound("Wallet")
	}

	newBalance := wallet.Balance.Add(amount)
	if kind == domain.TransactionDebit {
		newBalance = wallet.Balance.Sub(amount)
		if newBalance.IsNegative() {
			return apperror.ErrInsufficientFunds()
		}
	}

	if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance); err != nil {
		return err
	}

	entry := &domain.WalletTransaction{
		ID:        uuid.New(),
		WalletID:  wallet.ID,
		Kind:      kind,
		Amount:    amount,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
		return err
	}

	s.logger.Debug().
		Str("wallet_id", wallet.ID.String()).
		Str("kind", string(kind)).
		Str("amount", amount.String()).
		Str("source", source).
		Msg("wallet movement recorded")
	return nil
}
