package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// Asset is one minted token backed by a vaulted physical item.
type Asset struct {
	ID                 uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID         uuid.UUID         `gorm:"column:category_id;type:uuid;not null;uniqueIndex:idx_assets_category_serial,priority:1"`
	FingerprintID      uuid.UUID         `gorm:"column:fingerprint_id;type:uuid;not null"`
	SerialNumber       int64             `gorm:"column:serial_number;not null;uniqueIndex:idx_assets_category_serial,priority:2"`
	OwnerAccountID     uuid.UUID         `gorm:"column:owner_account_id;type:uuid;not null;index"`
	Status             enums.AssetStatus `gorm:"column:status;type:asset_status_enum;not null;default:'active'"`
	Blacklisted        bool              `gorm:"column:blacklisted;not null;default:false"`
	StorageFeePaidThru time.Time         `gorm:"column:storage_fee_paid_thru;not null"`
	MintedAt           time.Time         `gorm:"column:minted_at;not null"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
