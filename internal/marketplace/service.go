package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/internal/pricing"
	"github.com/vaulted-markets/vaulted-backend/internal/registry"
	"github.com/vaulted-markets/vaulted-backend/internal/treasury"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox/payloads"
)

// maxBatchSize caps how many assets one sell or stop call may touch.
const maxBatchSize = 50

// BuyUnmintedInput is a primary-market purchase: pay the issuer, mint a
// fresh asset. No marketplace fee applies. Quantity is accepted for
// forward compatibility but each call mints exactly one unit.
type BuyUnmintedInput struct {
	CategoryID     uuid.UUID
	FingerprintID  uuid.UUID
	BuyerAccountID uuid.UUID
	Currency       enums.Currency
	Quantity       int
	Actor          *outbox.ActorRef
}

// SellItem is one asset-price pair in a batch listing. A price of zero
// lists the asset at the oracle quote current at fill time.
type SellItem struct {
	AssetID     uuid.UUID
	PriceMicros int64
}

// SellBatchInput lists assets for sale. Re-listing an already listed
// asset overwrites its price. An optional referrer is recorded on each
// listing for attribution.
type SellBatchInput struct {
	SellerAccountID   uuid.UUID
	ReferrerAccountID *uuid.UUID
	Currency          enums.Currency
	Items             []SellItem
	Actor             *outbox.ActorRef
}

// StopBatchInput withdraws active listings.
type StopBatchInput struct {
	SellerAccountID uuid.UUID
	AssetIDs        []uuid.UUID
	Actor           *outbox.ActorRef
}

// BuyInput fills one secondary-market listing.
type BuyInput struct {
	ListingID      uuid.UUID
	BuyerAccountID uuid.UUID
	Actor          *outbox.ActorRef
}

// TradeResult reports the settled amounts of a secondary purchase.
type TradeResult struct {
	Asset             *models.Asset
	PriceMicros       int64
	FeeMicros         int64
	SellerNetMicros   int64
	RentSettledMicros int64
}

// Service is the trading engine: primary sales against unminted stock
// and secondary trades over listed assets, with rent settlement wired
// into every ownership change.
type Service interface {
	BuyUnminted(ctx context.Context, input BuyUnmintedInput) (*models.Asset, error)
	SellBatch(ctx context.Context, input SellBatchInput) ([]models.Listing, error)
	StopBatchSale(ctx context.Context, input StopBatchInput) (int, error)
	Buy(ctx context.Context, input BuyInput) (*TradeResult, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]models.Listing, int64, error)
	DeactivateForAsset(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, reason string) error
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

type priceResolver interface {
	ResolvePrice(ctx context.Context, fingerprintID uuid.UUID, currency enums.Currency) (*pricing.Resolution, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, fingerprintID uuid.UUID) error
}

type custodian interface {
	Mint(ctx context.Context, tx *gorm.DB, input registry.MintInput) (*models.Asset, error)
	Transfer(ctx context.Context, tx *gorm.DB, input registry.TransferInput) error
	IsWhitelisted(ctx context.Context, categoryID, accountID uuid.UUID) (bool, error)
}

type rentSettler interface {
	SettleOnTransfer(ctx context.Context, tx *gorm.DB, assetID, ownerAccountID uuid.UUID, actor *outbox.ActorRef) (int64, error)
}

type service struct {
	repo          Repository
	tx            txRunner
	funds         treasuryMover
	events        outboxPublisher
	prices        priceResolver
	custody       custodian
	rents         rentSettler
	defaultFeeBps int
	feeCollector  uuid.UUID
	now           func() time.Time
}

// NewService wires the marketplace service. defaultFeeBps applies to
// categories without their own fee override; feeCollectorID receives
// the platform cut.
func NewService(
	repo Repository,
	tx txRunner,
	funds treasuryMover,
	events outboxPublisher,
	prices priceResolver,
	custody custodian,
	rents rentSettler,
	defaultFeeBps int,
	feeCollectorID uuid.UUID,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("marketplace repository is required")
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
	if prices == nil {
		return nil, fmt.Errorf("pricing service is required")
	}
	if custody == nil {
		return nil, fmt.Errorf("registry service is required")
	}
	if rents == nil {
		return nil, fmt.Errorf("rent service is required")
	}
	if defaultFeeBps < 0 || defaultFeeBps > 10000 {
		return nil, fmt.Errorf("default fee bps out of range")
	}
	if feeCollectorID == uuid.Nil {
		return nil, fmt.Errorf("fee collector account id is required")
	}
	return &service{
		repo:          repo,
		tx:            tx,
		funds:         funds,
		events:        events,
		prices:        prices,
		custody:       custody,
		rents:         rents,
		defaultFeeBps: defaultFeeBps,
		feeCollector:  feeCollectorID,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) BuyUnminted(ctx context.Context, input BuyUnmintedInput) (*models.Asset, error) {
	if input.CategoryID == uuid.Nil || input.FingerprintID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category and fingerprint ids are required")
	}
	if input.BuyerAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer account id is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least one")
	}

	category, err := s.repo.GetCategory(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load category")
	}
	if category.WhitelistRequired {
		listed, err := s.custody.IsWhitelisted(ctx, input.CategoryID, input.BuyerAccountID)
		if err != nil {
			return nil, err
		}
		if !listed {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer is not whitelisted for category")
		}
	}

	resolved, err := s.prices.ResolvePrice(ctx, input.FingerprintID, input.Currency)
	if err != nil {
		return nil, err
	}
	total := resolved.TotalMicros()

	var asset *models.Asset
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.prices.DecrementStock(ctx, tx, input.FingerprintID); err != nil {
			return err
		}
		// Primary sales carry no marketplace fee: the unit price plus
		// the tokenization cost all go to the issuer.
		if err := s.funds.Move(ctx, tx, treasury.MoveInput{
			EntryType:     enums.LedgerEntryTypeTradePayment,
			Currency:      input.Currency,
			AmountMicros:  total,
			FromAccountID: input.BuyerAccountID,
			ToAccountID:   category.IssuerAccountID,
		}); err != nil {
			return err
		}
		asset, err = s.custody.Mint(ctx, tx, registry.MintInput{
			CategoryID:     input.CategoryID,
			FingerprintID:  input.FingerprintID,
			OwnerAccountID: input.BuyerAccountID,
			Currency:       input.Currency,
			PriceMicros:    total,
			Actor:          input.Actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *service) SellBatch(ctx context.Context, input SellBatchInput) ([]models.Listing, error) {
	if input.SellerAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller account id is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if len(input.Items) == 0 || len(input.Items) > maxBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch size out of range")
	}
	for _, item := range input.Items {
		if item.AssetID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
		}
		if item.PriceMicros < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
	}

	var listings []models.Listing
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()
		for _, item := range input.Items {
			asset, err := repo.GetAsset(ctx, item.AssetID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load asset")
			}
			if asset.Status != enums.AssetStatusActive {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "asset is not active")
			}
			if asset.OwnerAccountID != input.SellerAccountID {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "seller does not own asset")
			}

			listing, err := repo.GetActiveListingForAsset(ctx, item.AssetID)
			switch {
			case err == nil:
				// Re-listing overwrites the price.
				listing.SellerAccountID = input.SellerAccountID
				listing.Currency = input.Currency
				listing.PriceMicros = item.PriceMicros
				listing.ReferrerAccountID = input.ReferrerAccountID
				if err := repo.SaveListing(ctx, listing); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update listing")
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				listing = &models.Listing{
					AssetID:           item.AssetID,
					SellerAccountID:   input.SellerAccountID,
					ReferrerAccountID: input.ReferrerAccountID,
					Currency:          input.Currency,
					PriceMicros:       item.PriceMicros,
					Active:            true,
				}
				if err := repo.CreateListing(ctx, listing); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create listing")
				}
			default:
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load listing")
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventListingCreated,
				AggregateType: enums.AggregateListing,
				AggregateID:   listing.ID,
				Actor:         input.Actor,
				Data: payloads.ListingCreatedEvent{
					ListingID:       listing.ID,
					AssetID:         listing.AssetID,
					SellerAccountID: listing.SellerAccountID,
					Currency:        listing.Currency,
					PriceMicros:     listing.PriceMicros,
				},
				Version:    1,
				OccurredAt: now,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit listing event")
			}
			listings = append(listings, *listing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (s *service) StopBatchSale(ctx context.Context, input StopBatchInput) (int, error) {
	if input.SellerAccountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "seller account id is required")
	}
	if len(input.AssetIDs) == 0 || len(input.AssetIDs) > maxBatchSize {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "batch size out of range")
	}

	var stopped int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()
		for _, assetID := range input.AssetIDs {
			listing, err := repo.GetActiveListingForAsset(ctx, assetID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load listing")
			}
			if listing.SellerAccountID != input.SellerAccountID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
			}
			if _, err := repo.DeactivateListingsForAsset(ctx, assetID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to deactivate listing")
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventListingRemoved,
				AggregateType: enums.AggregateListing,
				AggregateID:   listing.ID,
				Actor:         input.Actor,
				Data: payloads.ListingRemovedEvent{
					ListingID:       listing.ID,
					AssetID:         listing.AssetID,
					SellerAccountID: listing.SellerAccountID,
					Reason:          "withdrawn",
					RemovedAt:       now,
				},
				Version:    1,
				OccurredAt: now,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit removal event")
			}
			stopped++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stopped, nil
}

func (s *service) Buy(ctx context.Context, input BuyInput) (*TradeResult, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	if input.BuyerAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer account id is required")
	}

	var result TradeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.GetListingForUpdate(ctx, input.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to lock listing")
		}
		if !listing.Active {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is no longer active")
		}
		if listing.SellerAccountID == input.BuyerAccountID {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot buy own listing")
		}

		asset, err := repo.GetAsset(ctx, listing.AssetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load asset")
		}
		if asset.OwnerAccountID != listing.SellerAccountID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "seller no longer owns asset")
		}
		category, err := repo.GetCategory(ctx, asset.CategoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load category")
		}

		// Accrued rent settles to the outgoing owner before anything
		// else changes hands.
		settled, err := s.rents.SettleOnTransfer(ctx, tx, asset.ID, listing.SellerAccountID, input.Actor)
		if err != nil {
			return err
		}

		// Zero-price listings fill at the oracle quote current now,
		// not at listing time.
		price := listing.PriceMicros
		if price == 0 {
			resolved, err := s.prices.ResolvePrice(ctx, asset.FingerprintID, listing.Currency)
			if err != nil {
				return err
			}
			price = resolved.TotalMicros()
		}

		fee := s.feeFor(category, price)
		sellerNet := price - fee

		collector := s.feeCollector
		if category.FeeCollectorAccountID != nil {
			collector = *category.FeeCollectorAccountID
		}

		if err := s.funds.Move(ctx, tx, treasury.MoveInput{
			EntryType:     enums.LedgerEntryTypeTradePayment,
			Currency:      listing.Currency,
			AmountMicros:  sellerNet,
			FromAccountID: input.BuyerAccountID,
			ToAccountID:   listing.SellerAccountID,
			AssetID:       &asset.ID,
		}); err != nil {
			return err
		}
		if fee > 0 {
			if err := s.funds.Move(ctx, tx, treasury.MoveInput{
				EntryType:     enums.LedgerEntryTypeMarketplaceFee,
				Currency:      listing.Currency,
				AmountMicros:  fee,
				FromAccountID: input.BuyerAccountID,
				ToAccountID:   collector,
				AssetID:       &asset.ID,
			}); err != nil {
				return err
			}
		}

		if err := s.custody.Transfer(ctx, tx, registry.TransferInput{
			AssetID:       asset.ID,
			FromAccountID: listing.SellerAccountID,
			ToAccountID:   input.BuyerAccountID,
			Actor:         input.Actor,
		}); err != nil {
			return err
		}
		if _, err := repo.DeactivateListingsForAsset(ctx, asset.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to deactivate listing")
		}

		now := s.now()
		tradeEvent := outbox.DomainEvent{
			EventType:     enums.EventTradeCompleted,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         input.Actor,
			Data: payloads.TradeCompletedEvent{
				ListingID:       listing.ID,
				AssetID:         asset.ID,
				BuyerAccountID:  input.BuyerAccountID,
				SellerAccountID: listing.SellerAccountID,
				Currency:        listing.Currency,
				PriceMicros:     price,
				FeeMicros:       fee,
				CompletedAt:     now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.events.Emit(ctx, tx, tradeEvent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit trade event")
		}
		if fee > 0 {
			feeEvent := outbox.DomainEvent{
				EventType:     enums.EventMarketplaceFeePaid,
				AggregateType: enums.AggregateAsset,
				AggregateID:   asset.ID,
				Actor:         input.Actor,
				Data: payloads.MarketplaceFeePaidEvent{
					AssetID:        asset.ID,
					PayerAccountID: input.BuyerAccountID,
					Currency:       listing.Currency,
					FeeMicros:      fee,
					PaidAt:         now,
				},
				Version:    1,
				OccurredAt: now,
			}
			if err := s.events.Emit(ctx, tx, feeEvent); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit fee event")
			}
		}

		result = TradeResult{
			Asset:             asset,
			PriceMicros:       price,
			FeeMicros:         fee,
			SellerNetMicros:   sellerNet,
			RentSettledMicros: settled,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) ListListings(ctx context.Context, filter ListingFilter) ([]models.Listing, int64, error) {
	listings, total, err := s.repo.ListListings(ctx, filter)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list listings")
	}
	return listings, total, nil
}

// DeactivateForAsset withdraws any active listing inside the caller's
// transaction; the storage-fee sweep uses it before seizing.
func (s *service) DeactivateForAsset(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, reason string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}
	if assetID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}
	repo := s.repo.WithTx(tx)
	removed, err := repo.DeactivateListingsForAsset(ctx, assetID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to deactivate listings")
	}
	now := s.now()
	for _, listing := range removed {
		event := outbox.DomainEvent{
			EventType:     enums.EventListingRemoved,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Data: payloads.ListingRemovedEvent{
				ListingID:       listing.ID,
				AssetID:         listing.AssetID,
				SellerAccountID: listing.SellerAccountID,
				Reason:          reason,
				RemovedAt:       now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit removal event")
		}
	}
	return nil
}

func (s *service) feeFor(category *models.Category, priceMicros int64) int64 {
	if category.FeeExempt {
		return 0
	}
	bps := s.defaultFeeBps
	if category.FeeBps != nil {
		bps = *category.FeeBps
	}
	if bps <= 0 {
		return 0
	}
	return decimal.NewFromInt(priceMicros).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(decimal.NewFromInt(10000)).
		Floor().IntPart()
}
