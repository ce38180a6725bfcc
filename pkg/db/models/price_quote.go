package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// PriceQuote is one oracle observation for a fingerprint. The newest
// quote wins; stale quotes are kept for auditability.
type PriceQuote struct {
	ID                     uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID             uuid.UUID      `gorm:"column:category_id;type:uuid;not null;index"`
	FingerprintID          uuid.UUID      `gorm:"column:fingerprint_id;type:uuid;not null;index"`
	Currency               enums.Currency `gorm:"column:currency;type:currency_enum;not null"`
	PriceMicros            int64          `gorm:"column:price_micros;not null"`
	TokenizationCostMicros int64          `gorm:"column:tokenization_cost_micros;not null;default:0"`
	QuotedAt               time.Time      `gorm:"column:quoted_at;not null"`
	CreatedAt              time.Time      `gorm:"column:created_at;autoCreateTime"`
}
