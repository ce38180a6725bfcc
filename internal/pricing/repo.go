package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/internal/repo"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// Repository reads pricing inputs and manages oracle quotes and stock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error)
	GetFingerprint(ctx context.Context, fingerprintID uuid.UUID) (*models.Fingerprint, error)
	LatestQuote(ctx context.Context, fingerprintID uuid.UUID, currency enums.Currency) (*models.PriceQuote, error)
	CreateQuote(ctx context.Context, quote *models.PriceQuote) error
	SetFixedPrice(ctx context.Context, fingerprintID uuid.UUID, priceMicros, tokenizationCostMicros int64) error
	DecrementStock(ctx context.Context, fingerprintID uuid.UUID) (bool, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a pricing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.With(tx)}
}

func (r *repository) GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.base.DB(ctx).First(&category, "id = ?", categoryID).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) GetFingerprint(ctx context.Context, fingerprintID uuid.UUID) (*models.Fingerprint, error) {
	var fingerprint models.Fingerprint
	if err := r.base.DB(ctx).First(&fingerprint, "id = ?", fingerprintID).Error; err != nil {
		return nil, err
	}
	return &fingerprint, nil
}

func (r *repository) LatestQuote(ctx context.Context, fingerprintID uuid.UUID, currency enums.Currency) (*models.PriceQuote, error) {
	var quote models.PriceQuote
	err := r.base.DB(ctx).
		Where("fingerprint_id = ? AND currency = ?", fingerprintID, currency).
		Order("quoted_at DESC").
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) CreateQuote(ctx context.Context, quote *models.PriceQuote) error {
	return r.base.DB(ctx).Create(quote).Error
}

func (r *repository) SetFixedPrice(ctx context.Context, fingerprintID uuid.UUID, priceMicros, tokenizationCostMicros int64) error {
	return r.base.DB(ctx).
		Model(&models.Fingerprint{}).
		Where("id = ?", fingerprintID).
		Updates(map[string]interface{}{
			"fixed_price_micros":       priceMicros,
			"tokenization_cost_micros": tokenizationCostMicros,
			"updated_at":               time.Now().UTC(),
		}).Error
}

func (r *repository) DecrementStock(ctx context.Context, fingerprintID uuid.UUID) (bool, error) {
	result := r.base.DB(ctx).
		Model(&models.Fingerprint{}).
		Where("id = ? AND stock_remaining > 0", fingerprintID).
		Updates(map[string]interface{}{
			"stock_remaining": gorm.Expr("stock_remaining - 1"),
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
