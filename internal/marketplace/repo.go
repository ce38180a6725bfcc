package marketplace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaulted-markets/vaulted-backend/internal/repo"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
)

// ListingFilter narrows and pages listing queries.
type ListingFilter struct {
	CategoryID      *uuid.UUID
	SellerAccountID *uuid.UUID
	Page            int
	PerPage         int
}

// Repository persists listings and reads market-adjacent rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateListing(ctx context.Context, listing *models.Listing) error
	SaveListing(ctx context.Context, listing *models.Listing) error
	GetListingForUpdate(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	GetActiveListingForAsset(ctx context.Context, assetID uuid.UUID) (*models.Listing, error)
	DeactivateListingsForAsset(ctx context.Context, assetID uuid.UUID) ([]models.Listing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]models.Listing, int64, error)
	GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, error)
	GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a marketplace repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.With(tx)}
}

func (r *repository) CreateListing(ctx context.Context, listing *models.Listing) error {
	return r.base.DB(ctx).Create(listing).Error
}

func (r *repository) SaveListing(ctx context.Context, listing *models.Listing) error {
	return r.base.DB(ctx).Save(listing).Error
}

func (r *repository) GetListingForUpdate(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&listing, "id = ?", listingID).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) GetActiveListingForAsset(ctx context.Context, assetID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset_id = ? AND active", assetID).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) DeactivateListingsForAsset(ctx context.Context, assetID uuid.UUID) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.base.DB(ctx).
		Where("asset_id = ? AND active", assetID).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	err = r.base.DB(ctx).
		Model(&models.Listing{}).
		Where("asset_id = ? AND active", assetID).
		Updates(map[string]interface{}{
			"active":         false,
			"deactivated_at": now,
			"updated_at":     now,
		}).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *repository) ListListings(ctx context.Context, filter ListingFilter) ([]models.Listing, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := r.base.DB(ctx).Model(&models.Listing{}).Where("active")
	if filter.CategoryID != nil {
		query = query.Joins("JOIN assets ON assets.id = listings.asset_id").
			Where("assets.category_id = ?", *filter.CategoryID)
	}
	if filter.SellerAccountID != nil {
		query = query.Where("seller_account_id = ?", *filter.SellerAccountID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []models.Listing
	err := query.
		Order("listings.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
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
