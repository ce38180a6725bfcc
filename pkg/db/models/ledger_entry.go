package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// LedgerEntry records an immutable money movement between two accounts.
type LedgerEntry struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EntryType     enums.LedgerEntryType `gorm:"column:entry_type;type:ledger_entry_type_enum;not null"`
	Currency      enums.Currency        `gorm:"column:currency;type:currency_enum;not null"`
	AmountMicros  int64                 `gorm:"column:amount_micros;not null"`
	FromAccountID uuid.UUID             `gorm:"column:from_account_id;type:uuid;not null"`
	ToAccountID   uuid.UUID             `gorm:"column:to_account_id;type:uuid;not null"`
	AssetID       *uuid.UUID            `gorm:"column:asset_id;type:uuid"`
	Metadata      json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}
