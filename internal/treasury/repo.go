package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaulted-markets/vaulted-backend/internal/repo"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	"github.com/vaulted-markets/vaulted-backend/pkg/pagination"
)

// Repository manages persistence for balances and ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetBalance(ctx context.Context, accountID uuid.UUID, currency enums.Currency) (*models.Balance, error)
	GetBalanceForUpdate(ctx context.Context, accountID uuid.UUID, currency enums.Currency) (*models.Balance, error)
	UpsertBalance(ctx context.Context, accountID uuid.UUID, currency enums.Currency, deltaMicros int64) error
	CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListEntriesForAccount(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LedgerEntry, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a treasury repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.With(tx)}
}

func (r *repository) GetBalance(ctx context.Context, accountID uuid.UUID, currency enums.Currency) (*models.Balance, error) {
	var balance models.Balance
	err := r.base.DB(ctx).
		Where("account_id = ? AND currency = ?", accountID, currency).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) GetBalanceForUpdate(ctx context.Context, accountID uuid.UUID, currency enums.Currency) (*models.Balance, error) {
	var balance models.Balance
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ? AND currency = ?", accountID, currency).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) UpsertBalance(ctx context.Context, accountID uuid.UUID, currency enums.Currency, deltaMicros int64) error {
	now := time.Now().UTC()
	return r.base.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "currency"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"amount_micros": gorm.Expr("balances.amount_micros + ?", deltaMicros),
				"updated_at":    now,
			}),
		}).
		Create(&models.Balance{
			AccountID:    accountID,
			Currency:     currency,
			AmountMicros: deltaMicros,
		}).Error
}

func (r *repository) CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.base.DB(ctx).Create(entry).Error
}

func (r *repository) ListEntriesForAccount(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	query := r.base.DB(ctx).
		Where("from_account_id = ? OR to_account_id = ?", accountID, accountID)
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var entries []models.LedgerEntry
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
