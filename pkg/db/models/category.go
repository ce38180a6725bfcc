package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// Category groups assets of one physical kind (a gold bar weight class,
// a building) under a single issuer, pricing mode and fee policy. The
// issuer is the category owner; the depositor and fee collector columns
// are the capability table consulted by the rent and marketplace
// services, falling back to the issuer / platform collector when unset.
type Category struct {
	ID                     uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name                   string            `gorm:"column:name;type:text;not null;uniqueIndex"`
	IssuerAccountID        uuid.UUID         `gorm:"column:issuer_account_id;type:uuid;not null"`
	DepositorAccountID     *uuid.UUID        `gorm:"column:depositor_account_id;type:uuid"`
	FeeCollectorAccountID  *uuid.UUID        `gorm:"column:fee_collector_account_id;type:uuid"`
	PriceSource            enums.PriceSource `gorm:"column:price_source;type:price_source_enum;not null;default:'fixed'"`
	ApprovedCurrencies     pq.StringArray    `gorm:"column:approved_currencies;type:text[];not null"`
	FeeBps                 *int              `gorm:"column:fee_bps"`
	FeeExempt              bool              `gorm:"column:fee_exempt;not null;default:false"`
	WhitelistRequired      bool              `gorm:"column:whitelist_required;not null;default:false"`
	StorageFeeAnnualMicros int64             `gorm:"column:storage_fee_annual_micros;not null;default:0"`
	CreatedAt              time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
