package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
)

// maxQuoteAge bounds how old an oracle observation may be before the
// primary market refuses to sell against it.
const maxQuoteAge = time.Hour

// SubmitQuoteInput records one oracle observation for a fingerprint.
type SubmitQuoteInput struct {
	CategoryID             uuid.UUID
	FingerprintID          uuid.UUID
	Currency               enums.Currency
	PriceMicros            int64
	TokenizationCostMicros int64
	QuotedAt               time.Time
}

// SetFixedPriceInput pins the primary-market price of a fingerprint.
type SetFixedPriceInput struct {
	FingerprintID          uuid.UUID
	PriceMicros            int64
	TokenizationCostMicros int64
}

// Resolution is the resolved cost of one unit: the unit price plus the
// issuance surcharge the buyer pays on primary sales.
type Resolution struct {
	UnitPriceMicros        int64
	TokenizationCostMicros int64
}

// TotalMicros is what the buyer pays per unit.
func (r *Resolution) TotalMicros() int64 {
	return r.UnitPriceMicros + r.TokenizationCostMicros
}

// Service resolves what one unit of unminted stock costs right now.
type Service interface {
	ResolvePrice(ctx context.Context, fingerprintID uuid.UUID, currency enums.Currency) (*Resolution, error)
	SubmitQuote(ctx context.Context, input SubmitQuoteInput) (*models.PriceQuote, error)
	SetFixedPrice(ctx context.Context, input SetFixedPriceInput) error
	DecrementStock(ctx context.Context, tx *gorm.DB, fingerprintID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the pricing service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository is required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

// ResolvePrice returns the micro-unit price for one unit of the
// fingerprint in the requested currency, honoring the category's price
// source and its approved-currency list.
func (s *service) ResolvePrice(ctx context.Context, fingerprintID uuid.UUID, currency enums.Currency) (*Resolution, error) {
	if fingerprintID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fingerprint id is required")
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	fingerprint, err := s.repo.GetFingerprint(ctx, fingerprintID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fingerprint not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load fingerprint")
	}
	category, err := s.repo.GetCategory(ctx, fingerprint.CategoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load category")
	}
	if !currencyApproved(category, currency) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "currency not approved for pricing")
	}

	switch category.PriceSource {
	case enums.PriceSourceFixed:
		if fingerprint.FixedPriceMicros == nil || *fingerprint.FixedPriceMicros <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no fixed price configured")
		}
		return &Resolution{
			UnitPriceMicros:        *fingerprint.FixedPriceMicros,
			TokenizationCostMicros: fingerprint.TokenizationCostMicros,
		}, nil
	case enums.PriceSourceOracle:
		quote, err := s.repo.LatestQuote(ctx, fingerprintID, currency)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no oracle quote available")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load oracle quote")
		}
		if s.now().Sub(quote.QuotedAt) > maxQuoteAge {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "oracle quote is stale")
		}
		return &Resolution{
			UnitPriceMicros:        quote.PriceMicros,
			TokenizationCostMicros: quote.TokenizationCostMicros,
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "unknown price source")
	}
}

func (s *service) SubmitQuote(ctx context.Context, input SubmitQuoteInput) (*models.PriceQuote, error) {
	if input.CategoryID == uuid.Nil || input.FingerprintID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category and fingerprint ids are required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if input.PriceMicros <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.TokenizationCostMicros < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tokenization cost must not be negative")
	}

	quotedAt := input.QuotedAt
	if quotedAt.IsZero() {
		quotedAt = s.now()
	}
	quote := &models.PriceQuote{
		CategoryID:             input.CategoryID,
		FingerprintID:          input.FingerprintID,
		Currency:               input.Currency,
		PriceMicros:            input.PriceMicros,
		TokenizationCostMicros: input.TokenizationCostMicros,
		QuotedAt:               quotedAt,
	}
	if err := s.repo.CreateQuote(ctx, quote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to record oracle quote")
	}
	return quote, nil
}

func (s *service) SetFixedPrice(ctx context.Context, input SetFixedPriceInput) error {
	if input.FingerprintID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "fingerprint id is required")
	}
	if input.PriceMicros <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.TokenizationCostMicros < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "tokenization cost must not be negative")
	}
	if err := s.repo.SetFixedPrice(ctx, input.FingerprintID, input.PriceMicros, input.TokenizationCostMicros); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to set fixed price")
	}
	return nil
}

// DecrementStock consumes one unit of unminted stock inside the caller's
// transaction. Returns an economic error when nothing remains.
func (s *service) DecrementStock(ctx context.Context, tx *gorm.DB, fingerprintID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}
	if fingerprintID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "fingerprint id is required")
	}
	decremented, err := s.repo.WithTx(tx).DecrementStock(ctx, fingerprintID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decrement stock")
	}
	if !decremented {
		return pkgerrors.New(pkgerrors.CodeEconomic, "out of stock")
	}
	return nil
}

func currencyApproved(category *models.Category, currency enums.Currency) bool {
	for _, approved := range category.ApprovedCurrencies {
		if approved == string(currency) {
			return true
		}
	}
	return false
}
