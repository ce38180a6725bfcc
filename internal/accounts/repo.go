package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/internal/repo"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// Repository persists platform accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error
	FindSystemAccount(ctx context.Context, email string) (*models.Account, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.With(tx)}
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.base.DB(ctx).Create(account).Error
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.base.DB(ctx).First(&account, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByID(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.base.DB(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	return r.base.DB(ctx).
		Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"last_login_at": at,
			"updated_at":    at,
		}).Error
}

func (r *repository) FindSystemAccount(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.base.DB(ctx).
		Where("email = ? AND role = ?", email, enums.AccountRoleSystem).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}
