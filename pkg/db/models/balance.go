package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// Balance holds an account's spendable funds in one currency,
// denominated in integer micro-units.
type Balance struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID    uuid.UUID      `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_balances_account_currency"`
	Currency     enums.Currency `gorm:"column:currency;type:currency_enum;not null;uniqueIndex:idx_balances_account_currency"`
	AmountMicros int64          `gorm:"column:amount_micros;not null;default:0"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
