package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// Account represents the canonical identity entity. System accounts
// (rent escrow, fee collector) carry the system role and never log in.
type Account struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string            `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	DisplayName  string            `gorm:"column:display_name;not null"`
	Role         enums.AccountRole `gorm:"column:role;type:account_role_enum;not null;default:'trader'"`
	IsActive     bool              `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time        `gorm:"column:last_login_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
