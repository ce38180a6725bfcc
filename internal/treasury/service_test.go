package treasury

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/pagination"
)

type balanceKey struct {
	account  uuid.UUID
	currency enums.Currency
}

type fakeRepository struct {
	balances map[balanceKey]int64
	entries  []*models.LedgerEntry

	getForUpdateErr error
	upsertErr       error
	createErr       error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{balances: map[balanceKey]int64{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) GetBalance(ctx context.Context, accountID uuid.UUID, currency enums.Currency) (*models.Balance, error) {
	amount, ok := f.balances[balanceKey{accountID, currency}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Balance{AccountID: accountID, Currency: currency, AmountMicros: amount}, nil
}

func (f *fakeRepository) GetBalanceForUpdate(ctx context.Context, accountID uuid.UUID, currency enums.Currency) (*models.Balance, error) {
	if f.getForUpdateErr != nil {
		return nil, f.getForUpdateErr
	}
	return f.GetBalance(ctx, accountID, currency)
}

func (f *fakeRepository) UpsertBalance(ctx context.Context, accountID uuid.UUID, currency enums.Currency, deltaMicros int64) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.balances[balanceKey{accountID, currency}] += deltaMicros
	return nil
}

func (f *fakeRepository) CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRepository) ListEntriesForAccount(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, entry := range f.entries {
		if entry.FromAccountID == accountID || entry.ToAccountID == accountID {
			out = append(out, *entry)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(&gorm.DB{})
}

func newTestService(t *testing.T, repo *fakeRepository, treasuryID uuid.UUID) Service {
	t.Helper()
	svc, err := NewService(repo, &fakeTxRunner{}, treasuryID)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_DepositCreditsBalance(t *testing.T) {
	repo := newFakeRepository()
	treasuryID := uuid.New()
	svc := newTestService(t, repo, treasuryID)

	accountID := uuid.New()
	balance, err := svc.Deposit(context.Background(), DepositInput{
		AccountID:    accountID,
		Currency:     enums.CurrencyUSD,
		AmountMicros: 2_500_000_000,
	})
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	if balance.AmountMicros != 2_500_000_000 {
		t.Fatalf("unexpected balance: %d", balance.AmountMicros)
	}
	if got := repo.balances[balanceKey{treasuryID, enums.CurrencyUSD}]; got != -2_500_000_000 {
		t.Fatalf("treasury account should absorb the debit, got %d", got)
	}
	if len(repo.entries) != 1 || repo.entries[0].EntryType != enums.LedgerEntryTypeDeposit {
		t.Fatalf("expected one deposit entry, got %+v", repo.entries)
	}
}

func TestService_WithdrawRequiresFunds(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, uuid.New())

	accountID := uuid.New()
	repo.balances[balanceKey{accountID, enums.CurrencyUSDC}] = 1_000_000

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		AccountID:    accountID,
		Currency:     enums.CurrencyUSDC,
		AmountMicros: 5_000_000,
	})
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeEconomic {
		t.Fatalf("expected economic constraint code, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("no ledger entry should be recorded, got %d", len(repo.entries))
	}
}

func TestService_MoveTransfersBetweenAccounts(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, uuid.New())

	from := uuid.New()
	to := uuid.New()
	repo.balances[balanceKey{from, enums.CurrencyUSD}] = 10_000_000

	assetID := uuid.New()
	err := svc.Move(context.Background(), &gorm.DB{}, MoveInput{
		EntryType:     enums.LedgerEntryTypeTradePayment,
		Currency:      enums.CurrencyUSD,
		AmountMicros:  7_000_000,
		FromAccountID: from,
		ToAccountID:   to,
		AssetID:       &assetID,
	})
	if err != nil {
		t.Fatalf("Move error: %v", err)
	}
	if got := repo.balances[balanceKey{from, enums.CurrencyUSD}]; got != 3_000_000 {
		t.Fatalf("unexpected source balance: %d", got)
	}
	if got := repo.balances[balanceKey{to, enums.CurrencyUSD}]; got != 7_000_000 {
		t.Fatalf("unexpected destination balance: %d", got)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.AssetID == nil || *entry.AssetID != assetID {
		t.Fatalf("expected asset id on entry, got %+v", entry)
	}
}

func TestService_MoveZeroAmountIsNoop(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, uuid.New())

	err := svc.Move(context.Background(), &gorm.DB{}, MoveInput{
		EntryType:     enums.LedgerEntryTypeRentClaim,
		Currency:      enums.CurrencyUSD,
		AmountMicros:  0,
		FromAccountID: uuid.New(),
		ToAccountID:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("zero-amount move should succeed: %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("zero-amount move must not write entries, got %d", len(repo.entries))
	}
}

func TestService_MoveValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, uuid.New())

	shared := uuid.New()
	tests := []struct {
		name  string
		input MoveInput
	}{
		{
			name: "negative amount",
			input: MoveInput{
				EntryType:     enums.LedgerEntryTypeDeposit,
				Currency:      enums.CurrencyUSD,
				AmountMicros:  -1,
				FromAccountID: uuid.New(),
				ToAccountID:   uuid.New(),
			},
		},
		{
			name: "missing destination",
			input: MoveInput{
				EntryType:     enums.LedgerEntryTypeDeposit,
				Currency:      enums.CurrencyUSD,
				AmountMicros:  100,
				FromAccountID: uuid.New(),
			},
		},
		{
			name: "same account",
			input: MoveInput{
				EntryType:     enums.LedgerEntryTypeDeposit,
				Currency:      enums.CurrencyUSD,
				AmountMicros:  100,
				FromAccountID: shared,
				ToAccountID:   shared,
			},
		},
		{
			name: "invalid entry type",
			input: MoveInput{
				EntryType:     enums.LedgerEntryType("not_real"),
				Currency:      enums.CurrencyUSD,
				AmountMicros:  100,
				FromAccountID: uuid.New(),
				ToAccountID:   uuid.New(),
			},
		},
		{
			name: "invalid currency",
			input: MoveInput{
				EntryType:     enums.LedgerEntryTypeDeposit,
				Currency:      enums.Currency("doge"),
				AmountMicros:  100,
				FromAccountID: uuid.New(),
				ToAccountID:   uuid.New(),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Move(context.Background(), &gorm.DB{}, tc.input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestService_BalanceMissingRowIsZero(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, uuid.New())

	amount, err := svc.Balance(context.Background(), uuid.New(), enums.CurrencyUSDT)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if amount != 0 {
		t.Fatalf("expected zero balance, got %d", amount)
	}
}

func TestService_MoveRepoError(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, uuid.New())

	from := uuid.New()
	repo.balances[balanceKey{from, enums.CurrencyUSD}] = 1_000_000
	expectedErr := errors.New("boom")
	repo.upsertErr = expectedErr

	err := svc.Move(context.Background(), &gorm.DB{}, MoveInput{
		EntryType:     enums.LedgerEntryTypeTradePayment,
		Currency:      enums.CurrencyUSD,
		AmountMicros:  500,
		FromAccountID: from,
		ToAccountID:   uuid.New(),
	})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

func TestService_EntriesPagesWithCursor(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, uuid.New())

	account := uuid.New()
	for i := 0; i < 3; i++ {
		repo.entries = append(repo.entries, &models.LedgerEntry{
			ID:            uuid.New(),
			EntryType:     enums.LedgerEntryTypeDeposit,
			Currency:      enums.CurrencyUSD,
			AmountMicros:  int64(i + 1),
			FromAccountID: uuid.New(),
			ToAccountID:   account,
		})
	}

	page, err := svc.Entries(context.Background(), account, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("Entries error: %v", err)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page.Entries))
	}
	if page.NextCursor == "" {
		t.Fatalf("expected next cursor when more rows remain")
	}

	cursor, err := pagination.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("next cursor should round-trip: %v", err)
	}
	if cursor.ID != page.Entries[1].ID {
		t.Fatalf("cursor should point at the last returned entry")
	}
}

func TestService_EntriesRejectsBadCursor(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, uuid.New())

	_, err := svc.Entries(context.Background(), uuid.New(), pagination.Params{Cursor: "%%%not-base64%%%"})
	if err == nil {
		t.Fatalf("expected invalid cursor to be rejected")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
