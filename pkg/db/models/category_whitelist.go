package models

import (
	"time"

	"github.com/google/uuid"
)

// CategoryWhitelistEntry allows one account to buy unminted stock in a
// category that requires allow-listing.
type CategoryWhitelistEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;not null;uniqueIndex:idx_whitelist_category_account"`
	AccountID  uuid.UUID `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_whitelist_category_account"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
