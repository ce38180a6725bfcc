package registry

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

// Repository persists categories, fingerprints, whitelist entries and assets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategoryFee(ctx context.Context, categoryID uuid.UUID, feeBps *int, feeExempt bool) error

	CreateFingerprint(ctx context.Context, fingerprint *models.Fingerprint) error
	GetFingerprint(ctx context.Context, fingerprintID uuid.UUID) (*models.Fingerprint, error)
	ListFingerprints(ctx context.Context, categoryID uuid.UUID) ([]models.Fingerprint, error)

	AddWhitelistEntry(ctx context.Context, entry *models.CategoryWhitelistEntry) error
	RemoveWhitelistEntry(ctx context.Context, categoryID, accountID uuid.UUID) error
	WhitelistEntryExists(ctx context.Context, categoryID, accountID uuid.UUID) (bool, error)

	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, error)
	GetAssetForUpdate(ctx context.Context, assetID uuid.UUID) (*models.Asset, error)
	NextSerialNumber(ctx context.Context, categoryID uuid.UUID) (int64, error)
	UpdateAssetOwner(ctx context.Context, assetID, ownerAccountID uuid.UUID) error
	UpdateAssetStatus(ctx context.Context, assetID uuid.UUID, status enums.AssetStatus) error
	UpdateAssetBlacklisted(ctx context.Context, assetID uuid.UUID, blacklisted bool) error
	ListAssetsForOwner(ctx context.Context, ownerAccountID uuid.UUID) ([]models.Asset, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a registry repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.With(tx)}
}

func (r *repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.base.DB(ctx).Create(category).Error
}

func (r *repository) GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.base.DB(ctx).First(&category, "id = ?", categoryID).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.base.DB(ctx).Order("created_at ASC").Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) UpdateCategoryFee(ctx context.Context, categoryID uuid.UUID, feeBps *int, feeExempt bool) error {
	return r.base.DB(ctx).
		Model(&models.Category{}).
		Where("id = ?", categoryID).
		Updates(map[string]interface{}{
			"fee_bps":    feeBps,
			"fee_exempt": feeExempt,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) CreateFingerprint(ctx context.Context, fingerprint *models.Fingerprint) error {
	return r.base.DB(ctx).Create(fingerprint).Error
}

func (r *repository) GetFingerprint(ctx context.Context, fingerprintID uuid.UUID) (*models.Fingerprint, error) {
	var fingerprint models.Fingerprint
	if err := r.base.DB(ctx).First(&fingerprint, "id = ?", fingerprintID).Error; err != nil {
		return nil, err
	}
	return &fingerprint, nil
}

func (r *repository) ListFingerprints(ctx context.Context, categoryID uuid.UUID) ([]models.Fingerprint, error) {
	var fingerprints []models.Fingerprint
	err := r.base.DB(ctx).
		Where("category_id = ?", categoryID).
		Order("value ASC").
		Find(&fingerprints).Error
	if err != nil {
		return nil, err
	}
	return fingerprints, nil
}

func (r *repository) AddWhitelistEntry(ctx context.Context, entry *models.CategoryWhitelistEntry) error {
	return r.base.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
}

func (r *repository) RemoveWhitelistEntry(ctx context.Context, categoryID, accountID uuid.UUID) error {
	return r.base.DB(ctx).
		Where("category_id = ? AND account_id = ?", categoryID, accountID).
		Delete(&models.CategoryWhitelistEntry{}).Error
}

func (r *repository) WhitelistEntryExists(ctx context.Context, categoryID, accountID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.CategoryWhitelistEntry{}).
		Where("category_id = ? AND account_id = ?", categoryID, accountID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreateAsset(ctx context.Context, asset *models.Asset) error {
	return r.base.DB(ctx).Create(asset).Error
}

func (r *repository) GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	if err := r.base.DB(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		return nil, err
	}
	return &asset, nil
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

func (r *repository) NextSerialNumber(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var max int64
	err := r.base.DB(ctx).
		Model(&models.Asset{}).
		Where("category_id = ?", categoryID).
		Select("COALESCE(MAX(serial_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *repository) UpdateAssetOwner(ctx context.Context, assetID, ownerAccountID uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.Asset{}).
		Where("id = ?", assetID).
		Updates(map[string]interface{}{
			"owner_account_id": ownerAccountID,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *repository) UpdateAssetStatus(ctx context.Context, assetID uuid.UUID, status enums.AssetStatus) error {
	return r.base.DB(ctx).
		Model(&models.Asset{}).
		Where("id = ?", assetID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) UpdateAssetBlacklisted(ctx context.Context, assetID uuid.UUID, blacklisted bool) error {
	return r.base.DB(ctx).
		Model(&models.Asset{}).
		Where("id = ?", assetID).
		Updates(map[string]interface{}{
			"blacklisted": blacklisted,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *repository) ListAssetsForOwner(ctx context.Context, ownerAccountID uuid.UUID) ([]models.Asset, error) {
	var assets []models.Asset
	err := r.base.DB(ctx).
		Where("owner_account_id = ?", ownerAccountID).
		Order("minted_at DESC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}
