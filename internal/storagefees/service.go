package storagefees

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/internal/registry"
	"github.com/vaulted-markets/vaulted-backend/internal/rent"
	"github.com/vaulted-markets/vaulted-backend/internal/treasury"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox/payloads"
)

// maxPrepayMonths caps how far ahead storage can be prepaid.
const maxPrepayMonths = 120

// sweepBatchSize bounds how many delinquent assets one sweep handles.
const sweepBatchSize = 100

// PayInput extends an asset's storage coverage by whole months.
type PayInput struct {
	AssetID        uuid.UUID
	PayerAccountID uuid.UUID
	Currency       enums.Currency
	Months         int
	Actor          *outbox.ActorRef
}

// PayResult reports what was charged and the new coverage date.
type PayResult struct {
	AmountMicros int64
	PaidThru     time.Time
}

// Service charges vault storage fees and seizes assets whose coverage
// lapsed past the grace period.
type Service interface {
	Pay(ctx context.Context, input PayInput) (*PayResult, error)
	SweepDelinquent(ctx context.Context) ([]uuid.UUID, error)
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

type rentPauser interface {
	Pause(ctx context.Context, input rent.PauseInput) (*rent.PauseResult, error)
	Record(ctx context.Context, assetID uuid.UUID) (*models.RentRecord, error)
}

type assetSeizer interface {
	Seize(ctx context.Context, tx *gorm.DB, input registry.SeizeInput) error
}

type listingCloser interface {
	DeactivateForAsset(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, reason string) error
}

type service struct {
	repo     Repository
	tx       txRunner
	funds    treasuryMover
	events   outboxPublisher
	rents    rentPauser
	seizer   assetSeizer
	listings listingCloser
	grace    time.Duration
	now      func() time.Time
}

// NewService wires the storage-fee service. grace is how long past the
// paid-through date an asset may sit before the sweep seizes it.
func NewService(
	repo Repository,
	tx txRunner,
	funds treasuryMover,
	events outboxPublisher,
	rents rentPauser,
	seizer assetSeizer,
	listings listingCloser,
	grace time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("storage-fee repository is required")
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
	if rents == nil {
		return nil, fmt.Errorf("rent service is required")
	}
	if seizer == nil {
		return nil, fmt.Errorf("registry service is required")
	}
	if listings == nil {
		return nil, fmt.Errorf("marketplace service is required")
	}
	if grace <= 0 {
		return nil, fmt.Errorf("grace period must be positive")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		funds:    funds,
		events:   events,
		rents:    rents,
		seizer:   seizer,
		listings: listings,
		grace:    grace,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Pay(ctx context.Context, input PayInput) (*PayResult, error) {
	if input.AssetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}
	if input.PayerAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer account id is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if input.Months <= 0 || input.Months > maxPrepayMonths {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "months out of range")
	}

	var result PayResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		asset, err := repo.GetAssetForUpdate(ctx, input.AssetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to lock asset")
		}
		if asset.Status != enums.AssetStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "asset is not active")
		}
		category, err := repo.GetCategory(ctx, asset.CategoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load category")
		}
		if category.StorageFeeAnnualMicros <= 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "category has no storage fee")
		}
		if !currencyApproved(category, input.Currency) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "currency not approved for category")
		}

		amount := decimal.NewFromInt(category.StorageFeeAnnualMicros).
			Mul(decimal.NewFromInt(int64(input.Months))).
			Div(decimal.NewFromInt(12)).
			Floor().IntPart()

		if err := s.funds.Move(ctx, tx, treasury.MoveInput{
			EntryType:     enums.LedgerEntryTypeStorageFee,
			Currency:      input.Currency,
			AmountMicros:  amount,
			FromAccountID: input.PayerAccountID,
			ToAccountID:   category.IssuerAccountID,
			AssetID:       &input.AssetID,
		}); err != nil {
			return err
		}

		now := s.now()
		base := asset.StorageFeePaidThru
		if base.Before(now) {
			base = now
		}
		paidThru := base.AddDate(0, input.Months, 0)
		if err := repo.UpdatePaidThru(ctx, input.AssetID, paidThru); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to extend coverage")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventStorageFeePaid,
			AggregateType: enums.AggregateAsset,
			AggregateID:   input.AssetID,
			Actor:         input.Actor,
			Data: payloads.StorageFeePaidEvent{
				AssetID:        input.AssetID,
				PayerAccountID: input.PayerAccountID,
				Currency:       input.Currency,
				AmountMicros:   amount,
				PaidThru:       paidThru,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit storage fee event")
		}
		result = PayResult{AmountMicros: amount, PaidThru: paidThru}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SweepDelinquent seizes every active asset whose coverage lapsed more
// than the grace period ago. Each asset settles independently so one
// failure does not block the rest of the batch.
func (s *service) SweepDelinquent(ctx context.Context) ([]uuid.UUID, error) {
	now := s.now()
	cutoff := now.Add(-s.grace)
	assets, err := s.repo.ListDelinquentAssets(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list delinquent assets")
	}

	var seized []uuid.UUID
	var errs error
	for _, asset := range assets {
		if err := s.seizeOne(ctx, asset); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("asset %s: %w", asset.ID, err))
			continue
		}
		seized = append(seized, asset.ID)
	}
	return seized, errs
}

func (s *service) seizeOne(ctx context.Context, asset models.Asset) error {
	// A running distribution settles before custody changes hands.
	record, err := s.rents.Record(ctx, asset.ID)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
			return err
		}
	}
	if record != nil && record.DistributionRunning {
		// Pause acts on the category owner's behalf.
		category, err := s.repo.GetCategory(ctx, asset.CategoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load category")
		}
		if _, err := s.rents.Pause(ctx, rent.PauseInput{
			AssetID:         asset.ID,
			CallerAccountID: category.IssuerAccountID,
		}); err != nil {
			return err
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.listings.DeactivateForAsset(ctx, tx, asset.ID, "storage fee delinquency"); err != nil {
			return err
		}
		return s.seizer.Seize(ctx, tx, registry.SeizeInput{
			AssetID:         asset.ID,
			DelinquentSince: asset.StorageFeePaidThru,
		})
	})
}

func currencyApproved(category *models.Category, currency enums.Currency) bool {
	for _, approved := range category.ApprovedCurrencies {
		if approved == string(currency) {
			return true
		}
	}
	return false
}
