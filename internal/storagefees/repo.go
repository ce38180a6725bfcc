package storagefees

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaulted-markets/vaulted-backend/internal/repo"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// Repository reads assets for fee assessment and extends paid-through dates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetAssetForUpdate(ctx context.Context, assetID uuid.UUID) (*models.Asset, error)
	GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error)
	UpdatePaidThru(ctx context.Context, assetID uuid.UUID, paidThru time.Time) error
	ListDelinquentAssets(ctx context.Context, paidThruBefore time.Time, limit int) ([]models.Asset, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a storage-fee repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.With(tx)}
}

func (r *repository) GetAssetForUpdate(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&asset, "id = ?", assetID).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *repository) GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.base.DB(ctx).First(&category, "id = ?", categoryID).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) UpdatePaidThru(ctx context.Context, assetID uuid.UUID, paidThru time.Time) error {
	return r.base.DB(ctx).
		Model(&models.Asset{}).
		Where("id = ?", assetID).
		Updates(map[string]interface{}{
			"storage_fee_paid_thru": paidThru,
			"updated_at":            time.Now().UTC(),
		}).Error
}

func (r *repository) ListDelinquentAssets(ctx context.Context, paidThruBefore time.Time, limit int) ([]models.Asset, error) {
	if limit <= 0 {
		limit = 100
	}
	var assets []models.Asset
	err := r.base.DB(ctx).
		Where("status = ? AND storage_fee_paid_thru < ?", enums.AssetStatusActive, paidThruBefore).
		Order("storage_fee_paid_thru ASC").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}
