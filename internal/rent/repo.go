package rent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaulted-markets/vaulted-backend/internal/repo"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
)

// Repository persists rent records. Asset reads go through here too so
// settlement can run entirely inside the caller's transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetRecord(ctx context.Context, assetID uuid.UUID) (*models.RentRecord, error)
	GetRecordForUpdate(ctx context.Context, assetID uuid.UUID) (*models.RentRecord, error)
	CreateRecord(ctx context.Context, record *models.RentRecord) error
	SaveRecord(ctx context.Context, record *models.RentRecord) error
	GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, error)
	GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error)
	UpdateCategoryDepositor(ctx context.Context, categoryID, depositorAccountID uuid.UUID) error
}

type repository struct {
	base repo.Base
}

// NewRepository returns a rent repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.With(tx)}
}

func (r *repository) GetRecord(ctx context.Context, assetID uuid.UUID) (*models.RentRecord, error) {
	var record models.RentRecord
	err := r.base.DB(ctx).First(&record, "asset_id = ?", assetID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) GetRecordForUpdate(ctx context.Context, assetID uuid.UUID) (*models.RentRecord, error) {
	var record models.RentRecord
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, "asset_id = ?", assetID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) CreateRecord(ctx context.Context, record *models.RentRecord) error {
	return r.base.DB(ctx).Create(record).Error
}

func (r *repository) SaveRecord(ctx context.Context, record *models.RentRecord) error {
	return r.base.DB(ctx).Save(record).Error
}

func (r *repository) GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	if err := r.base.DB(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
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

func (r *repository) UpdateCategoryDepositor(ctx context.Context, categoryID, depositorAccountID uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.Category{}).
		Where("id = ?", categoryID).
		Updates(map[string]interface{}{
			"depositor_account_id": depositorAccountID,
			"updated_at":           time.Now().UTC(),
		}).Error
}
