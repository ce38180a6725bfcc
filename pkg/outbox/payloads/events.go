package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// AssetMintedEvent signals a primary-market purchase minted a new asset.
type AssetMintedEvent struct {
	AssetID        uuid.UUID      `json:"asset_id"`
	CategoryID     uuid.UUID      `json:"category_id"`
	FingerprintID  uuid.UUID      `json:"fingerprint_id"`
	SerialNumber   int64          `json:"serial_number"`
	OwnerAccountID uuid.UUID      `json:"owner_account_id"`
	Currency       enums.Currency `json:"currency"`
	PriceMicros    int64          `json:"price_micros"`
	MintedAt       time.Time      `json:"minted_at"`
}

// AssetTransferredEvent is emitted on every ownership change.
type AssetTransferredEvent struct {
	AssetID       uuid.UUID `json:"asset_id"`
	FromAccountID uuid.UUID `json:"from_account_id"`
	ToAccountID   uuid.UUID `json:"to_account_id"`
	TransferredAt time.Time `json:"transferred_at"`
}

// AssetSeizedEvent reports a storage-fee seizure back to custody systems.
type AssetSeizedEvent struct {
	AssetID         uuid.UUID `json:"asset_id"`
	PreviousOwnerID uuid.UUID `json:"previous_owner_id"`
	IssuerAccountID uuid.UUID `json:"issuer_account_id"`
	DelinquentSince time.Time `json:"delinquent_since"`
	SeizedAt        time.Time `json:"seized_at"`
}

// TradeCompletedEvent carries the settled secondary-market trade.
type TradeCompletedEvent struct {
	ListingID       uuid.UUID      `json:"listing_id"`
	AssetID         uuid.UUID      `json:"asset_id"`
	BuyerAccountID  uuid.UUID      `json:"buyer_account_id"`
	SellerAccountID uuid.UUID      `json:"seller_account_id"`
	Currency        enums.Currency `json:"currency"`
	PriceMicros     int64          `json:"price_micros"`
	FeeMicros       int64          `json:"fee_micros"`
	CompletedAt     time.Time      `json:"completed_at"`
}

// MarketplaceFeePaidEvent records the platform cut of a trade.
type MarketplaceFeePaidEvent struct {
	AssetID        uuid.UUID      `json:"asset_id"`
	PayerAccountID uuid.UUID      `json:"payer_account_id"`
	Currency       enums.Currency `json:"currency"`
	FeeMicros      int64          `json:"fee_micros"`
	PaidAt         time.Time      `json:"paid_at"`
}

// StorageFeePaidEvent extends an asset's paid-through date.
type StorageFeePaidEvent struct {
	AssetID        uuid.UUID      `json:"asset_id"`
	PayerAccountID uuid.UUID      `json:"payer_account_id"`
	Currency       enums.Currency `json:"currency"`
	AmountMicros   int64          `json:"amount_micros"`
	PaidThru       time.Time      `json:"paid_thru"`
}

// ListingCreatedEvent is emitted when an asset goes on sale.
type ListingCreatedEvent struct {
	ListingID       uuid.UUID      `json:"listing_id"`
	AssetID         uuid.UUID      `json:"asset_id"`
	SellerAccountID uuid.UUID      `json:"seller_account_id"`
	Currency        enums.Currency `json:"currency"`
	PriceMicros     int64          `json:"price_micros"`
}

// ListingRemovedEvent is emitted when a listing is withdrawn or filled.
type ListingRemovedEvent struct {
	ListingID       uuid.UUID `json:"listing_id"`
	AssetID         uuid.UUID `json:"asset_id"`
	SellerAccountID uuid.UUID `json:"seller_account_id"`
	Reason          string    `json:"reason,omitempty"`
	RemovedAt       time.Time `json:"removed_at"`
}

// RentDepositedEvent describes a new vesting cycle.
type RentDepositedEvent struct {
	AssetID            uuid.UUID      `json:"asset_id"`
	DepositorAccountID uuid.UUID      `json:"depositor_account_id"`
	Currency           enums.Currency `json:"currency"`
	AmountMicros       int64          `json:"amount_micros"`
	CarriedOverMicros  int64          `json:"carried_over_micros"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
}

// RentClaimedEvent records vested rent paid out to the asset owner.
type RentClaimedEvent struct {
	AssetID        uuid.UUID      `json:"asset_id"`
	OwnerAccountID uuid.UUID      `json:"owner_account_id"`
	Currency       enums.Currency `json:"currency"`
	AmountMicros   int64          `json:"amount_micros"`
	ClaimedAt      time.Time      `json:"claimed_at"`
}

// DistributionPausedEvent reports a claw-back split between owner and depositor.
type DistributionPausedEvent struct {
	AssetID            uuid.UUID      `json:"asset_id"`
	DepositorAccountID uuid.UUID      `json:"depositor_account_id"`
	OwnerAccountID     uuid.UUID      `json:"owner_account_id"`
	Currency           enums.Currency `json:"currency"`
	PaidToOwnerMicros  int64          `json:"paid_to_owner_micros"`
	ClawedBackMicros   int64          `json:"clawed_back_micros"`
	PausedAt           time.Time      `json:"paused_at"`
}

// AccountRegisteredEvent announces a new platform account.
type AccountRegisteredEvent struct {
	AccountID    uuid.UUID         `json:"account_id"`
	Email        string            `json:"email"`
	Role         enums.AccountRole `json:"role"`
	RegisteredAt time.Time         `json:"registered_at"`
}
