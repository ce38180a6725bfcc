package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateAsset       OutboxAggregateType = "asset"
	AggregateCategory    OutboxAggregateType = "category"
	AggregateListing     OutboxAggregateType = "listing"
	AggregateRentRecord  OutboxAggregateType = "rent_record"
	AggregateLedgerEntry OutboxAggregateType = "ledger_entry"
	AggregateAccount     OutboxAggregateType = "account"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAsset,
	AggregateCategory,
	AggregateListing,
	AggregateRentRecord,
	AggregateLedgerEntry,
	AggregateAccount,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventAssetMinted        OutboxEventType = "asset_minted"
	EventAssetTransferred   OutboxEventType = "asset_transferred"
	EventAssetSeized        OutboxEventType = "asset_seized"
	EventTradeCompleted     OutboxEventType = "trade_completed"
	EventMarketplaceFeePaid OutboxEventType = "marketplace_fee_paid"
	EventStorageFeePaid     OutboxEventType = "storage_fee_paid"
	EventListingCreated     OutboxEventType = "listing_created"
	EventListingRemoved     OutboxEventType = "listing_removed"
	EventRentDeposited      OutboxEventType = "rent_deposited"
	EventRentClaimed        OutboxEventType = "rent_claimed"
	EventDistributionPaused OutboxEventType = "distribution_paused"
	EventAccountRegistered  OutboxEventType = "account_registered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventAssetMinted,
	EventAssetTransferred,
	EventAssetSeized,
	EventTradeCompleted,
	EventMarketplaceFeePaid,
	EventStorageFeePaid,
	EventListingCreated,
	EventListingRemoved,
	EventRentDeposited,
	EventRentClaimed,
	EventDistributionPaused,
	EventAccountRegistered,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
