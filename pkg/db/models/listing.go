package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// Listing is a secondary-market offer for one minted asset. A price of
// zero means the sale settles at the oracle quote current at fill time.
type Listing struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AssetID           uuid.UUID      `gorm:"column:asset_id;type:uuid;not null;index"`
	SellerAccountID   uuid.UUID      `gorm:"column:seller_account_id;type:uuid;not null;index"`
	Currency          enums.Currency `gorm:"column:currency;type:currency_enum;not null"`
	PriceMicros       int64          `gorm:"column:price_micros;not null"`
	ReferrerAccountID *uuid.UUID     `gorm:"column:referrer_account_id;type:uuid"`
	Active            bool           `gorm:"column:active;not null;default:true"`
	DeactivatedAt     *time.Time     `gorm:"column:deactivated_at"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
