package models

import (
	"time"

	"github.com/google/uuid"
)

// Fingerprint identifies one product variant within a category (for
// gold, a weight class; for real estate, a unit type). Unminted stock
// is tracked here and decremented on primary-market purchases. The
// tokenization cost is a fixed issuance surcharge added on top of the
// unit price in primary sales.
type Fingerprint struct {
	ID                     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID             uuid.UUID `gorm:"column:category_id;type:uuid;not null;uniqueIndex:idx_fingerprints_category_value"`
	Value                  int64     `gorm:"column:value;not null;uniqueIndex:idx_fingerprints_category_value"`
	FixedPriceMicros       *int64    `gorm:"column:fixed_price_micros"`
	TokenizationCostMicros int64     `gorm:"column:tokenization_cost_micros;not null;default:0"`
	StockRemaining         int       `gorm:"column:stock_remaining;not null;default:0"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
