package treasury

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/pagination"
)

// MoveInput describes a single transfer between two accounts. Amounts are
// expressed in micro-units of the currency.
type MoveInput struct {
	EntryType     enums.LedgerEntryType
	Currency      enums.Currency
	AmountMicros  int64
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	AssetID       *uuid.UUID
	Metadata      []byte
}

// DepositInput credits an account from an external funding source.
type DepositInput struct {
	AccountID    uuid.UUID
	Currency     enums.Currency
	AmountMicros int64
}

// WithdrawInput debits an account toward an external destination.
type WithdrawInput struct {
	AccountID    uuid.UUID
	Currency     enums.Currency
	AmountMicros int64
}

// Service owns account balances and the money-movement ledger. Move runs
// inside a caller-provided transaction so domain services can settle funds
// atomically with their own writes.
type Service interface {
	Deposit(ctx context.Context, input DepositInput) (*models.Balance, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*models.Balance, error)
	Move(ctx context.Context, tx *gorm.DB, input MoveInput) error
	Balance(ctx context.Context, accountID uuid.UUID, currency enums.Currency) (int64, error)
	Entries(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*EntryPage, error)
}

// EntryPage is one page of ledger history plus the cursor for the next one.
type EntryPage struct {
	Entries    []models.LedgerEntry
	NextCursor string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner

	// treasuryAccountID is the system account backing external deposits and
	// withdrawals, so every ledger entry has two real sides.
	treasuryAccountID uuid.UUID
}

// NewService wires the treasury service.
func NewService(repo Repository, tx txRunner, treasuryAccountID uuid.UUID) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("treasury repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if treasuryAccountID == uuid.Nil {
		return nil, fmt.Errorf("treasury account id is required")
	}
	return &service{repo: repo, tx: tx, treasuryAccountID: treasuryAccountID}, nil
}

func (s *service) Deposit(ctx context.Context, input DepositInput) (*models.Balance, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if input.AmountMicros <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var balance *models.Balance
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.Move(ctx, tx, MoveInput{
			EntryType:     enums.LedgerEntryTypeDeposit,
			Currency:      input.Currency,
			AmountMicros:  input.AmountMicros,
			FromAccountID: s.treasuryAccountID,
			ToAccountID:   input.AccountID,
		}); err != nil {
			return err
		}
		loaded, err := s.repo.WithTx(tx).GetBalance(ctx, input.AccountID, input.Currency)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load balance after deposit")
		}
		balance = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*models.Balance, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if input.AmountMicros <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var balance *models.Balance
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.Move(ctx, tx, MoveInput{
			EntryType:     enums.LedgerEntryTypeWithdrawal,
			Currency:      input.Currency,
			AmountMicros:  input.AmountMicros,
			FromAccountID: input.AccountID,
			ToAccountID:   s.treasuryAccountID,
		}); err != nil {
			return err
		}
		loaded, err := s.repo.WithTx(tx).GetBalance(ctx, input.AccountID, input.Currency)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load balance after withdrawal")
		}
		balance = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// Move debits the source balance and credits the destination within tx. A
// zero-amount move is a no-op so settlement paths can call it
// unconditionally.
func (s *service) Move(ctx context.Context, tx *gorm.DB, input MoveInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}
	if input.AmountMicros < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	if input.AmountMicros == 0 {
		return nil
	}
	if input.FromAccountID == uuid.Nil || input.ToAccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "both accounts are required")
	}
	if input.FromAccountID == input.ToAccountID {
		return pkgerrors.New(pkgerrors.CodeValidation, "accounts must differ")
	}
	if !input.EntryType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid ledger entry type")
	}
	if !input.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	repo := s.repo.WithTx(tx)

	// The treasury system account absorbs external in/out flows and is
	// allowed to run negative, so only real accounts get the funds check.
	if input.FromAccountID != s.treasuryAccountID {
		current, err := repo.GetBalanceForUpdate(ctx, input.FromAccountID, input.Currency)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeEconomic, "insufficient funds")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to lock source balance")
		}
		if current.AmountMicros < input.AmountMicros {
			return pkgerrors.New(pkgerrors.CodeEconomic, "insufficient funds")
		}
	}

	if err := repo.UpsertBalance(ctx, input.FromAccountID, input.Currency, -input.AmountMicros); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to debit source balance")
	}
	if err := repo.UpsertBalance(ctx, input.ToAccountID, input.Currency, input.AmountMicros); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to credit destination balance")
	}

	entry := &models.LedgerEntry{
		EntryType:     input.EntryType,
		Currency:      input.Currency,
		AmountMicros:  input.AmountMicros,
		FromAccountID: input.FromAccountID,
		ToAccountID:   input.ToAccountID,
		AssetID:       input.AssetID,
	}
	if len(input.Metadata) > 0 {
		entry.Metadata = input.Metadata
	}
	if err := repo.CreateLedgerEntry(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to record ledger entry")
	}
	return nil
}

func (s *service) Balance(ctx context.Context, accountID uuid.UUID, currency enums.Currency) (int64, error) {
	if accountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !currency.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	balance, err := s.repo.GetBalance(ctx, accountID, currency)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load balance")
	}
	return balance.AmountMicros, nil
}

func (s *service) Entries(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*EntryPage, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListEntriesForAccount(ctx, accountID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list ledger entries")
	}

	page := &EntryPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}
