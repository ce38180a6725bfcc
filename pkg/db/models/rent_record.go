package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// RentRecord tracks the current rent distribution cycle for one asset.
// There is at most one row per asset; a new deposit after full vesting
// rolls any unclaimed remainder forward and restarts the window.
// ClaimedTotalMicros is a lifetime counter and survives claw-backs.
type RentRecord struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AssetID             uuid.UUID      `gorm:"column:asset_id;type:uuid;not null;uniqueIndex"`
	DepositorAccountID  uuid.UUID      `gorm:"column:depositor_account_id;type:uuid;not null"`
	Currency            enums.Currency `gorm:"column:currency;type:currency_enum;not null"`
	DepositMicros       int64          `gorm:"column:deposit_micros;not null;default:0"`
	ClaimedMicros       int64          `gorm:"column:claimed_micros;not null;default:0"`
	UnclaimedMicros     int64          `gorm:"column:unclaimed_micros;not null;default:0"`
	ClaimedTotalMicros  int64          `gorm:"column:claimed_total_micros;not null;default:0"`
	DistributionRunning bool           `gorm:"column:distribution_running;not null;default:false"`
	StartTime           time.Time      `gorm:"column:start_time"`
	EndTime             time.Time      `gorm:"column:end_time"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
