package rent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/internal/treasury"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox/payloads"
)

// maxCustomWindow caps custom vesting windows at 62 days.
const maxCustomWindow = 62 * 24 * time.Hour

// DepositInput starts a new rent cycle for one asset. A period or a
// custom end time selects the vesting window; when both are present the
// custom end time wins.
type DepositInput struct {
	AssetID            uuid.UUID
	DepositorAccountID uuid.UUID
	Currency           enums.Currency
	AmountMicros       int64
	Period             *enums.RentPeriod
	CustomEndTime      *time.Time
	Actor              *outbox.ActorRef
}

// ClaimInput pays accrued rent out to the asset's current owner.
type ClaimInput struct {
	AssetID         uuid.UUID
	CallerAccountID uuid.UUID
	Actor           *outbox.ActorRef
}

// PauseInput halts a running distribution, paying the vested share to
// the owner and clawing the rest back to the depositor.
type PauseInput struct {
	AssetID         uuid.UUID
	CallerAccountID uuid.UUID
	Actor           *outbox.ActorRef
}

// PauseResult reports how the remaining deposit was split.
type PauseResult struct {
	PaidToOwnerMicros int64
	ClawedBackMicros  int64
}

// UpdateDepositorInput reassigns who funds and reclaims future cycles
// across a whole category. Only the category owner may do it.
type UpdateDepositorInput struct {
	CategoryID          uuid.UUID
	CallerAccountID     uuid.UUID
	NewDepositorAccount uuid.UUID
}

// Service runs the rent distribution ledger. Deposits vest linearly
// over the cycle window; owners claim the vested share at any time and
// unclaimed remainders roll into the next cycle.
type Service interface {
	Deposit(ctx context.Context, input DepositInput) (*models.RentRecord, error)
	Claimable(ctx context.Context, assetID uuid.UUID) (int64, error)
	Claim(ctx context.Context, input ClaimInput) (int64, error)
	Pause(ctx context.Context, input PauseInput) (*PauseResult, error)
	SettleOnTransfer(ctx context.Context, tx *gorm.DB, assetID, ownerAccountID uuid.UUID, actor *outbox.ActorRef) (int64, error)
	UpdateDepositor(ctx context.Context, input UpdateDepositorInput) error
	Record(ctx context.Context, assetID uuid.UUID) (*models.RentRecord, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type treasuryMover interface {
	Move(ctx context.Context, tx *gorm.DB, input treasury.MoveInput) error
}

type service struct {
	repo     Repository
	tx       txRunner
	funds    treasuryMover
	events   outboxPublisher
	escrowID uuid.UUID
	now      func() time.Time
}

// NewService wires the rent service. escrowAccountID is the system
// account that holds deposits until they vest.
func NewService(repo Repository, tx txRunner, funds treasuryMover, events outboxPublisher, escrowAccountID uuid.UUID) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rent repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if funds == nil {
		return nil, fmt.Errorf("treasury mover is required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if escrowAccountID == uuid.Nil {
		return nil, fmt.Errorf("escrow account id is required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		funds:    funds,
		events:   events,
		escrowID: escrowAccountID,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Deposit(ctx context.Context, input DepositInput) (*models.RentRecord, error) {
	if input.AssetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}
	if input.DepositorAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "depositor account id is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if input.AmountMicros <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Period == nil && input.CustomEndTime == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a period or custom end time is required")
	}
	if input.Period != nil && !input.Period.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid rent period")
	}

	now := s.now()
	var endTime time.Time
	if input.CustomEndTime != nil {
		// A custom end time overrides the period when both are given.
		endTime = input.CustomEndTime.UTC()
		if !endTime.After(now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom end time must be in the future")
		}
		if endTime.Sub(now) > maxCustomWindow {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom end time exceeds the 62 day limit")
		}
	} else {
		endTime = now.Add(input.Period.Duration())
	}

	var record *models.RentRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		asset, err := repo.GetAsset(ctx, input.AssetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load asset")
		}
		if asset.Status != enums.AssetStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "asset is not active")
		}
		category, err := repo.GetCategory(ctx, asset.CategoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load category")
		}
		// The owner may delegate depositing; without a delegate, rent
		// comes from the owner itself.
		allowedDepositor := category.IssuerAccountID
		if category.DepositorAccountID != nil {
			allowedDepositor = *category.DepositorAccountID
		}
		if input.DepositorAccountID != allowedDepositor {
			return pkgerrors.New(pkgerrors.CodeForbidden, "account is not the category depositor")
		}

		record, err = repo.GetRecordForUpdate(ctx, input.AssetID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to lock rent record")
		}

		var carriedOver int64
		if record == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			record = &models.RentRecord{AssetID: input.AssetID}
		} else {
			if record.DistributionRunning && now.Before(record.EndTime) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "previous distribution still vesting")
			}
			// A finished cycle rolls its unclaimed remainder forward.
			if record.DepositMicros > 0 {
				carriedOver = record.DepositMicros - record.ClaimedMicros
				record.UnclaimedMicros += carriedOver
			}
			if record.UnclaimedMicros > 0 && record.Currency != input.Currency {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "currency differs from unclaimed rent")
			}
		}

		if err := s.funds.Move(ctx, tx, treasury.MoveInput{
			EntryType:     enums.LedgerEntryTypeRentDeposit,
			Currency:      input.Currency,
			AmountMicros:  input.AmountMicros,
			FromAccountID: input.DepositorAccountID,
			ToAccountID:   s.escrowID,
			AssetID:       &input.AssetID,
		}); err != nil {
			return err
		}

		record.DepositorAccountID = input.DepositorAccountID
		record.Currency = input.Currency
		record.DepositMicros = input.AmountMicros
		record.ClaimedMicros = 0
		record.DistributionRunning = true
		record.StartTime = now
		record.EndTime = endTime

		if record.ID == uuid.Nil {
			if err := repo.CreateRecord(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create rent record")
			}
		} else if err := repo.SaveRecord(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to save rent record")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRentDeposited,
			AggregateType: enums.AggregateRentRecord,
			AggregateID:   record.ID,
			Actor:         input.Actor,
			Data: payloads.RentDepositedEvent{
				AssetID:            input.AssetID,
				DepositorAccountID: input.DepositorAccountID,
				Currency:           input.Currency,
				AmountMicros:       input.AmountMicros,
				CarriedOverMicros:  carriedOver,
				StartTime:          now,
				EndTime:            endTime,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit deposit event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) Claimable(ctx context.Context, assetID uuid.UUID) (int64, error) {
	if assetID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}
	record, err := s.repo.GetRecord(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load rent record")
	}
	return claimableMicros(record, s.now()), nil
}

func (s *service) Claim(ctx context.Context, input ClaimInput) (int64, error) {
	if input.AssetID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}
	if input.CallerAccountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "caller account id is required")
	}

	var paid int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		asset, err := repo.GetAsset(ctx, input.AssetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load asset")
		}
		// Anyone may trigger a claim; the payout always goes to the
		// current owner.
		paid, err = s.settle(ctx, tx, input.AssetID, asset.OwnerAccountID, input.Actor)
		if err != nil {
			return err
		}
		if paid == 0 {
			return pkgerrors.New(pkgerrors.CodeEconomic, "nothing to claim")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return paid, nil
}

func (s *service) Pause(ctx context.Context, input PauseInput) (*PauseResult, error) {
	if input.AssetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}
	if input.CallerAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "caller account id is required")
	}

	var result PauseResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.GetRecordForUpdate(ctx, input.AssetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rent record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to lock rent record")
		}
		if !record.DistributionRunning {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "distribution is not running")
		}
		asset, err := repo.GetAsset(ctx, input.AssetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load asset")
		}
		category, err := repo.GetCategory(ctx, asset.CategoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load category")
		}
		if category.IssuerAccountID != input.CallerAccountID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the category owner can pause distributions")
		}

		now := s.now()
		vested := vestedMicros(record, now)
		toOwner := record.UnclaimedMicros + vested - record.ClaimedMicros
		clawback := record.DepositMicros - vested

		if err := s.funds.Move(ctx, tx, treasury.MoveInput{
			EntryType:     enums.LedgerEntryTypeRentClaim,
			Currency:      record.Currency,
			AmountMicros:  toOwner,
			FromAccountID: s.escrowID,
			ToAccountID:   asset.OwnerAccountID,
			AssetID:       &input.AssetID,
		}); err != nil {
			return err
		}
		if err := s.funds.Move(ctx, tx, treasury.MoveInput{
			EntryType:     enums.LedgerEntryTypeRentClawback,
			Currency:      record.Currency,
			AmountMicros:  clawback,
			FromAccountID: s.escrowID,
			ToAccountID:   record.DepositorAccountID,
			AssetID:       &input.AssetID,
		}); err != nil {
			return err
		}

		record.ClaimedTotalMicros += toOwner
		record.DepositMicros = 0
		record.ClaimedMicros = 0
		record.UnclaimedMicros = 0
		record.DistributionRunning = false
		record.EndTime = now
		if err := repo.SaveRecord(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to save rent record")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventDistributionPaused,
			AggregateType: enums.AggregateRentRecord,
			AggregateID:   record.ID,
			Actor:         input.Actor,
			Data: payloads.DistributionPausedEvent{
				AssetID:            input.AssetID,
				DepositorAccountID: record.DepositorAccountID,
				OwnerAccountID:     asset.OwnerAccountID,
				Currency:           record.Currency,
				PaidToOwnerMicros:  toOwner,
				ClawedBackMicros:   clawback,
				PausedAt:           now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit pause event")
		}

		result = PauseResult{PaidToOwnerMicros: toOwner, ClawedBackMicros: clawback}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SettleOnTransfer pays accrued rent to the outgoing owner inside the
// caller's transaction so the buyer starts with a clean slate. Assets
// without a rent record settle to zero.
func (s *service) SettleOnTransfer(ctx context.Context, tx *gorm.DB, assetID, ownerAccountID uuid.UUID, actor *outbox.ActorRef) (int64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}
	if assetID == uuid.Nil || ownerAccountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "asset and owner ids are required")
	}
	return s.settle(ctx, tx, assetID, ownerAccountID, actor)
}

func (s *service) settle(ctx context.Context, tx *gorm.DB, assetID, ownerAccountID uuid.UUID, actor *outbox.ActorRef) (int64, error) {
	repo := s.repo.WithTx(tx)
	record, err := repo.GetRecordForUpdate(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to lock rent record")
	}

	now := s.now()
	vested := vestedMicros(record, now)
	amount := record.UnclaimedMicros + vested - record.ClaimedMicros
	if amount <= 0 {
		return 0, nil
	}

	if err := s.funds.Move(ctx, tx, treasury.MoveInput{
		EntryType:     enums.LedgerEntryTypeRentClaim,
		Currency:      record.Currency,
		AmountMicros:  amount,
		FromAccountID: s.escrowID,
		ToAccountID:   ownerAccountID,
		AssetID:       &assetID,
	}); err != nil {
		return 0, err
	}

	record.ClaimedMicros = vested
	record.UnclaimedMicros = 0
	record.ClaimedTotalMicros += amount
	if err := repo.SaveRecord(ctx, record); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to save rent record")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventRentClaimed,
		AggregateType: enums.AggregateRentRecord,
		AggregateID:   record.ID,
		Actor:         actor,
		Data: payloads.RentClaimedEvent{
			AssetID:        assetID,
			OwnerAccountID: ownerAccountID,
			Currency:       record.Currency,
			AmountMicros:   amount,
			ClaimedAt:      now,
		},
		Version:    1,
		OccurredAt: now,
	}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit claim event")
	}
	return amount, nil
}

func (s *service) UpdateDepositor(ctx context.Context, input UpdateDepositorInput) error {
	if input.CategoryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if input.CallerAccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "caller account id is required")
	}
	if input.NewDepositorAccount == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "new depositor account id is required")
	}
	category, err := s.repo.GetCategory(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load category")
	}
	if category.IssuerAccountID != input.CallerAccountID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the category owner can reassign the depositor")
	}
	if err := s.repo.UpdateCategoryDepositor(ctx, input.CategoryID, input.NewDepositorAccount); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update category depositor")
	}
	return nil
}

func (s *service) Record(ctx context.Context, assetID uuid.UUID) (*models.RentRecord, error) {
	if assetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}
	record, err := s.repo.GetRecord(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rent record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load rent record")
	}
	return record, nil
}

// vestedMicros returns how much of the current deposit has vested at
// the given instant. Vesting is linear between StartTime and EndTime.
func vestedMicros(record *models.RentRecord, at time.Time) int64 {
	if !record.DistributionRunning || record.DepositMicros == 0 {
		return 0
	}
	total := record.EndTime.Sub(record.StartTime)
	if total <= 0 {
		return record.DepositMicros
	}
	elapsed := at.Sub(record.StartTime)
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= total {
		return record.DepositMicros
	}
	vested := decimal.NewFromInt(record.DepositMicros).
		Mul(decimal.NewFromInt(int64(elapsed))).
		Div(decimal.NewFromInt(int64(total)))
	return vested.Floor().IntPart()
}

func claimableMicros(record *models.RentRecord, at time.Time) int64 {
	claimable := record.UnclaimedMicros + vestedMicros(record, at) - record.ClaimedMicros
	if claimable < 0 {
		return 0
	}
	return claimable
}
