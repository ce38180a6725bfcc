package rent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/internal/treasury"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox"
)

type fakeRepository struct {
	records    map[uuid.UUID]*models.RentRecord
	assets     map[uuid.UUID]*models.Asset
	categories map[uuid.UUID]*models.Category
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		records:    map[uuid.UUID]*models.RentRecord{},
		assets:     map[uuid.UUID]*models.Asset{},
		categories: map[uuid.UUID]*models.Category{},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) GetRecord(ctx context.Context, assetID uuid.UUID) (*models.RentRecord, error) {
	if r, ok := f.records[assetID]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetRecordForUpdate(ctx context.Context, assetID uuid.UUID) (*models.RentRecord, error) {
	return f.GetRecord(ctx, assetID)
}

func (f *fakeRepository) CreateRecord(ctx context.Context, record *models.RentRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.records[record.AssetID] = record
	return nil
}

func (f *fakeRepository) SaveRecord(ctx context.Context, record *models.RentRecord) error {
	f.records[record.AssetID] = record
	return nil
}

func (f *fakeRepository) GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	if a, ok := f.assets[assetID]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	if c, ok := f.categories[categoryID]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpdateCategoryDepositor(ctx context.Context, categoryID, depositorAccountID uuid.UUID) error {
	if c, ok := f.categories[categoryID]; ok {
		c.DepositorAccountID = &depositorAccountID
	}
	return nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeMover struct {
	moves []treasury.MoveInput
	err   error
}

func (f *fakeMover) Move(ctx context.Context, tx *gorm.DB, input treasury.MoveInput) error {
	if f.err != nil {
		return f.err
	}
	if input.AmountMicros == 0 {
		return nil
	}
	f.moves = append(f.moves, input)
	return nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type rentHarness struct {
	repo      *fakeRepository
	mover     *fakeMover
	events    *fakeOutbox
	escrow    uuid.UUID
	issuer    uuid.UUID
	depositor uuid.UUID
	service   *service
}

func newHarness(t *testing.T) *rentHarness {
	t.Helper()
	repo := newFakeRepository()
	mover := &fakeMover{}
	events := &fakeOutbox{}
	escrow := uuid.New()
	svc, err := NewService(repo, &fakeTxRunner{}, mover, events, escrow)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return &rentHarness{
		repo:      repo,
		mover:     mover,
		events:    events,
		escrow:    escrow,
		issuer:    uuid.New(),
		depositor: uuid.New(),
		service:   svc.(*service),
	}
}

func (h *rentHarness) setNow(at time.Time) {
	h.service.now = func() time.Time { return at }
}

// seedAsset creates an active asset whose category delegates deposits
// to h.depositor and is owned by h.issuer.
func (h *rentHarness) seedAsset(owner uuid.UUID) uuid.UUID {
	categoryID := uuid.New()
	depositor := h.depositor
	h.repo.categories[categoryID] = &models.Category{
		ID:                 categoryID,
		IssuerAccountID:    h.issuer,
		DepositorAccountID: &depositor,
	}
	assetID := uuid.New()
	h.repo.assets[assetID] = &models.Asset{
		ID:             assetID,
		CategoryID:     categoryID,
		OwnerAccountID: owner,
		Status:         enums.AssetStatusActive,
	}
	return assetID
}

var t0 = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func TestService_DepositStartsCycle(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	assetID := h.seedAsset(uuid.New())

	period := enums.RentPeriod31Days
	record, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	})
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	if !record.DistributionRunning {
		t.Fatal("expected distribution to be running")
	}
	if !record.EndTime.Equal(t0.Add(31 * 24 * time.Hour)) {
		t.Fatalf("unexpected end time: %s", record.EndTime)
	}
	if len(h.mover.moves) != 1 {
		t.Fatalf("expected one escrow move, got %d", len(h.mover.moves))
	}
	move := h.mover.moves[0]
	if move.FromAccountID != h.depositor || move.ToAccountID != h.escrow {
		t.Fatalf("unexpected move endpoints: %+v", move)
	}
	if move.EntryType != enums.LedgerEntryTypeRentDeposit {
		t.Fatalf("unexpected entry type: %s", move.EntryType)
	}
	if len(h.events.events) != 1 || h.events.events[0].EventType != enums.EventRentDeposited {
		t.Fatalf("expected deposit event, got %+v", h.events.events)
	}
}

func TestService_DepositRequiresCategoryDepositor(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	assetID := h.seedAsset(uuid.New())

	period := enums.RentPeriod31Days
	_, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: uuid.New(),
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
	if len(h.mover.moves) != 0 {
		t.Fatalf("no funds should move, got %+v", h.mover.moves)
	}
}

func TestService_DepositFallsBackToCategoryOwner(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	assetID := h.seedAsset(uuid.New())

	// With no delegate configured, the category owner deposits.
	for _, category := range h.repo.categories {
		category.DepositorAccountID = nil
	}

	period := enums.RentPeriod31Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.issuer,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("Deposit error: %v", err)
	}

	_, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       1_000_000,
		Period:             &period,
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
}

func TestService_DepositRejectedWhileVesting(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	assetID := h.seedAsset(uuid.New())

	period := enums.RentPeriod30Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       30_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("first deposit error: %v", err)
	}

	h.setNow(t0.Add(15 * 24 * time.Hour))
	_, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       30_000_000,
		Period:             &period,
	})
	if err == nil {
		t.Fatal("expected deposit lockout while vesting")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestService_DepositCarriesOverUnclaimed(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	assetID := h.seedAsset(uuid.New())

	period := enums.RentPeriod28Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       28_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("first deposit error: %v", err)
	}

	// The window closes with nothing claimed; the whole deposit rolls
	// into the next cycle.
	h.setNow(t0.Add(29 * 24 * time.Hour))
	record, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       10_000_000,
		Period:             &period,
	})
	if err != nil {
		t.Fatalf("second deposit error: %v", err)
	}
	if record.UnclaimedMicros != 28_000_000 {
		t.Fatalf("expected carry-over of 28_000_000, got %d", record.UnclaimedMicros)
	}
	if record.DepositMicros != 10_000_000 || record.ClaimedMicros != 0 {
		t.Fatalf("unexpected cycle state: %+v", record)
	}
}

func TestService_DepositCustomEndTimeBounds(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	assetID := h.seedAsset(uuid.New())

	tooFar := t0.Add(63 * 24 * time.Hour)
	_, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       1_000_000,
		CustomEndTime:      &tooFar,
	})
	if err == nil {
		t.Fatal("expected 62 day limit to reject end time")
	}

	// The limit is inclusive: a window of exactly 62 days is accepted.
	exact := t0.Add(62 * 24 * time.Hour)
	record, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       1_000_000,
		CustomEndTime:      &exact,
	})
	if err != nil {
		t.Fatalf("exact 62 day deposit error: %v", err)
	}
	if !record.EndTime.Equal(exact) {
		t.Fatalf("unexpected end time: %s", record.EndTime)
	}
}

func TestService_DepositCustomEndTimeOverridesPeriod(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	assetID := h.seedAsset(uuid.New())

	period := enums.RentPeriod31Days
	custom := t0.Add(45 * 24 * time.Hour)
	record, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       1_000_000,
		Period:             &period,
		CustomEndTime:      &custom,
	})
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	if !record.EndTime.Equal(custom) {
		t.Fatalf("custom end time should win over the period, got %s", record.EndTime)
	}

	_, err = h.service.Deposit(context.Background(), DepositInput{
		AssetID:            h.seedAsset(uuid.New()),
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       1_000_000,
	})
	if err == nil {
		t.Fatal("expected deposit without a window to fail")
	}
}

func TestService_ClaimableVestsLinearly(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	assetID := h.seedAsset(uuid.New())

	period := enums.RentPeriod31Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("deposit error: %v", err)
	}

	h.setNow(t0.Add(24 * time.Hour))
	claimable, err := h.service.Claimable(context.Background(), assetID)
	if err != nil {
		t.Fatalf("Claimable error: %v", err)
	}
	if claimable != 1_000_000 {
		t.Fatalf("expected one day of vesting, got %d", claimable)
	}

	h.setNow(t0.Add(40 * 24 * time.Hour))
	claimable, _ = h.service.Claimable(context.Background(), assetID)
	if claimable != 31_000_000 {
		t.Fatalf("expected full deposit after window, got %d", claimable)
	}
}

func TestService_ClaimPaysOwner(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	owner := uuid.New()
	assetID := h.seedAsset(owner)

	period := enums.RentPeriod31Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("deposit error: %v", err)
	}

	h.setNow(t0.Add(10 * 24 * time.Hour))
	paid, err := h.service.Claim(context.Background(), ClaimInput{
		AssetID:         assetID,
		CallerAccountID: owner,
	})
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if paid != 10_000_000 {
		t.Fatalf("expected ten days vested, got %d", paid)
	}

	record := h.repo.records[assetID]
	if record.ClaimedMicros != 10_000_000 || record.ClaimedTotalMicros != 10_000_000 {
		t.Fatalf("unexpected claim bookkeeping: %+v", record)
	}
	claimMove := h.mover.moves[len(h.mover.moves)-1]
	if claimMove.FromAccountID != h.escrow || claimMove.ToAccountID != owner {
		t.Fatalf("unexpected claim endpoints: %+v", claimMove)
	}

	// Claiming again immediately finds nothing vested.
	if _, err := h.service.Claim(context.Background(), ClaimInput{
		AssetID:         assetID,
		CallerAccountID: owner,
	}); err == nil {
		t.Fatal("expected nothing to claim")
	}
}

func TestService_ClaimByStrangerStillPaysOwner(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	owner := uuid.New()
	assetID := h.seedAsset(owner)

	period := enums.RentPeriod31Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("deposit error: %v", err)
	}

	h.setNow(t0.Add(24 * time.Hour))
	paid, err := h.service.Claim(context.Background(), ClaimInput{
		AssetID:         assetID,
		CallerAccountID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if paid != 1_000_000 {
		t.Fatalf("expected one day vested, got %d", paid)
	}
	claimMove := h.mover.moves[len(h.mover.moves)-1]
	if claimMove.ToAccountID != owner {
		t.Fatalf("payout must go to the owner, got %+v", claimMove)
	}
}

func TestService_PauseSplitsDeposit(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	owner := uuid.New()
	assetID := h.seedAsset(owner)

	period := enums.RentPeriod31Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("deposit error: %v", err)
	}

	// Pause a third of the way in: ten days of rent went to the owner,
	// the unvested remainder returns to the depositor.
	h.setNow(t0.Add(10 * 24 * time.Hour))
	result, err := h.service.Pause(context.Background(), PauseInput{
		AssetID:         assetID,
		CallerAccountID: h.issuer,
	})
	if err != nil {
		t.Fatalf("Pause error: %v", err)
	}
	if result.PaidToOwnerMicros != 10_000_000 {
		t.Fatalf("unexpected owner share: %d", result.PaidToOwnerMicros)
	}
	if result.ClawedBackMicros != 21_000_000 {
		t.Fatalf("unexpected clawback: %d", result.ClawedBackMicros)
	}

	record := h.repo.records[assetID]
	if record.DistributionRunning {
		t.Fatal("expected distribution to stop")
	}
	if record.DepositMicros != 0 || record.ClaimedMicros != 0 || record.UnclaimedMicros != 0 {
		t.Fatalf("expected record reset, got %+v", record)
	}
	if record.ClaimedTotalMicros != 10_000_000 {
		t.Fatalf("lifetime total should survive reset, got %d", record.ClaimedTotalMicros)
	}

	lastMove := h.mover.moves[len(h.mover.moves)-1]
	if lastMove.EntryType != enums.LedgerEntryTypeRentClawback || lastMove.ToAccountID != h.depositor {
		t.Fatalf("unexpected clawback move: %+v", lastMove)
	}

	if _, err := h.service.Pause(context.Background(), PauseInput{
		AssetID:         assetID,
		CallerAccountID: h.issuer,
	}); err == nil {
		t.Fatal("expected second pause to fail")
	}
}

func TestService_PauseRequiresCategoryOwner(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	owner := uuid.New()
	assetID := h.seedAsset(owner)

	period := enums.RentPeriod31Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("deposit error: %v", err)
	}

	for _, caller := range []uuid.UUID{owner, h.depositor, uuid.New()} {
		_, err := h.service.Pause(context.Background(), PauseInput{
			AssetID:         assetID,
			CallerAccountID: caller,
		})
		if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden for %s, got %v", caller, err)
		}
	}
	if !h.repo.records[assetID].DistributionRunning {
		t.Fatal("distribution should keep running")
	}
}

func TestService_SettleOnTransfer(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	owner := uuid.New()
	assetID := h.seedAsset(owner)

	// No record yet: settles to zero without error.
	paid, err := h.service.SettleOnTransfer(context.Background(), &gorm.DB{}, assetID, owner, nil)
	if err != nil || paid != 0 {
		t.Fatalf("expected clean zero settlement, got %d %v", paid, err)
	}

	period := enums.RentPeriod31Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("deposit error: %v", err)
	}

	h.setNow(t0.Add(5 * 24 * time.Hour))
	paid, err = h.service.SettleOnTransfer(context.Background(), &gorm.DB{}, assetID, owner, nil)
	if err != nil {
		t.Fatalf("SettleOnTransfer error: %v", err)
	}
	if paid != 5_000_000 {
		t.Fatalf("expected five days vested, got %d", paid)
	}
	if h.repo.records[assetID].ClaimedMicros != 5_000_000 {
		t.Fatalf("unexpected bookkeeping: %+v", h.repo.records[assetID])
	}
}

func TestService_ClaimedTotalAccumulatesAcrossCycles(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	owner := uuid.New()
	assetID := h.seedAsset(owner)

	period := enums.RentPeriod31Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       31_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("deposit error: %v", err)
	}

	h.setNow(t0.Add(10 * 24 * time.Hour))
	if _, err := h.service.Claim(context.Background(), ClaimInput{
		AssetID:         assetID,
		CallerAccountID: owner,
	}); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if total := h.repo.records[assetID].ClaimedTotalMicros; total != 10_000_000 {
		t.Fatalf("expected lifetime total 10_000_000, got %d", total)
	}

	h.setNow(t0.Add(20 * 24 * time.Hour))
	if _, err := h.service.Pause(context.Background(), PauseInput{
		AssetID:         assetID,
		CallerAccountID: h.issuer,
	}); err != nil {
		t.Fatalf("Pause error: %v", err)
	}
	if total := h.repo.records[assetID].ClaimedTotalMicros; total != 20_000_000 {
		t.Fatalf("expected lifetime total 20_000_000 after pause, got %d", total)
	}

	// A fresh cycle after the pause keeps accumulating on top.
	h.setNow(t0.Add(21 * 24 * time.Hour))
	period30 := enums.RentPeriod30Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: h.depositor,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       10_000_000,
		Period:             &period30,
	}); err != nil {
		t.Fatalf("redeposit error: %v", err)
	}
	if total := h.repo.records[assetID].ClaimedTotalMicros; total != 20_000_000 {
		t.Fatalf("redeposit must not disturb the lifetime total, got %d", total)
	}

	h.setNow(t0.Add(60 * 24 * time.Hour))
	if _, err := h.service.Claim(context.Background(), ClaimInput{
		AssetID:         assetID,
		CallerAccountID: owner,
	}); err != nil {
		t.Fatalf("final claim error: %v", err)
	}
	if total := h.repo.records[assetID].ClaimedTotalMicros; total != 30_000_000 {
		t.Fatalf("expected lifetime total 30_000_000, got %d", total)
	}
}

func TestService_UpdateDepositor(t *testing.T) {
	h := newHarness(t)
	h.setNow(t0)
	assetID := h.seedAsset(uuid.New())
	categoryID := h.repo.assets[assetID].CategoryID

	replacement := uuid.New()
	err := h.service.UpdateDepositor(context.Background(), UpdateDepositorInput{
		CategoryID:          categoryID,
		CallerAccountID:     uuid.New(),
		NewDepositorAccount: replacement,
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}

	if err := h.service.UpdateDepositor(context.Background(), UpdateDepositorInput{
		CategoryID:          categoryID,
		CallerAccountID:     h.issuer,
		NewDepositorAccount: replacement,
	}); err != nil {
		t.Fatalf("UpdateDepositor error: %v", err)
	}
	got := h.repo.categories[categoryID].DepositorAccountID
	if got == nil || *got != replacement {
		t.Fatalf("depositor not updated: %+v", got)
	}

	// The new delegate funds the next cycle.
	period := enums.RentPeriod31Days
	if _, err := h.service.Deposit(context.Background(), DepositInput{
		AssetID:            assetID,
		DepositorAccountID: replacement,
		Currency:           enums.CurrencyUSD,
		AmountMicros:       1_000_000,
		Period:             &period,
	}); err != nil {
		t.Fatalf("deposit by new depositor error: %v", err)
	}
}
