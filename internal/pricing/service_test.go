package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
)

type fakeRepository struct {
	categories   map[uuid.UUID]*models.Category
	fingerprints map[uuid.UUID]*models.Fingerprint
	quotes       map[uuid.UUID]*models.PriceQuote
	created      []*models.PriceQuote
	stock        map[uuid.UUID]int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		categories:   map[uuid.UUID]*models.Category{},
		fingerprints: map[uuid.UUID]*models.Fingerprint{},
		quotes:       map[uuid.UUID]*models.PriceQuote{},
		stock:        map[uuid.UUID]int{},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if c, ok := f.categories[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetFingerprint(ctx context.Context, id uuid.UUID) (*models.Fingerprint, error) {
	if fp, ok := f.fingerprints[id]; ok {
		return fp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) LatestQuote(ctx context.Context, fingerprintID uuid.UUID, currency enums.Currency) (*models.PriceQuote, error) {
	if q, ok := f.quotes[fingerprintID]; ok && q.Currency == currency {
		return q, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateQuote(ctx context.Context, quote *models.PriceQuote) error {
	f.created = append(f.created, quote)
	f.quotes[quote.FingerprintID] = quote
	return nil
}

func (f *fakeRepository) SetFixedPrice(ctx context.Context, fingerprintID uuid.UUID, priceMicros, tokenizationCostMicros int64) error {
	if fp, ok := f.fingerprints[fingerprintID]; ok {
		fp.FixedPriceMicros = &priceMicros
		fp.TokenizationCostMicros = tokenizationCostMicros
	}
	return nil
}

func (f *fakeRepository) DecrementStock(ctx context.Context, fingerprintID uuid.UUID) (bool, error) {
	if f.stock[fingerprintID] > 0 {
		f.stock[fingerprintID]--
		return true, nil
	}
	return false, nil
}

func seedFixedCategory(repo *fakeRepository, priceMicros int64, currencies ...string) (uuid.UUID, uuid.UUID) {
	categoryID := uuid.New()
	fingerprintID := uuid.New()
	repo.categories[categoryID] = &models.Category{
		ID:                 categoryID,
		PriceSource:        enums.PriceSourceFixed,
		ApprovedCurrencies: pq.StringArray(currencies),
	}
	repo.fingerprints[fingerprintID] = &models.Fingerprint{
		ID:               fingerprintID,
		CategoryID:       categoryID,
		FixedPriceMicros: &priceMicros,
	}
	return categoryID, fingerprintID
}

func TestService_ResolvePriceFixed(t *testing.T) {
	repo := newFakeRepository()
	_, fingerprintID := seedFixedCategory(repo, 1_850_000_000, "USD")
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	res, err := svc.ResolvePrice(context.Background(), fingerprintID, enums.CurrencyUSD)
	if err != nil {
		t.Fatalf("ResolvePrice error: %v", err)
	}
	if res.UnitPriceMicros != 1_850_000_000 {
		t.Fatalf("unexpected price: %d", res.UnitPriceMicros)
	}
	if res.TotalMicros() != 1_850_000_000 {
		t.Fatalf("unexpected total: %d", res.TotalMicros())
	}
}

func TestService_ResolvePriceAddsTokenizationCost(t *testing.T) {
	repo := newFakeRepository()
	_, fingerprintID := seedFixedCategory(repo, 1_850_000_000, "USD")
	repo.fingerprints[fingerprintID].TokenizationCostMicros = 25_000_000
	svc, _ := NewService(repo)

	res, err := svc.ResolvePrice(context.Background(), fingerprintID, enums.CurrencyUSD)
	if err != nil {
		t.Fatalf("ResolvePrice error: %v", err)
	}
	if res.UnitPriceMicros != 1_850_000_000 {
		t.Fatalf("unexpected unit price: %d", res.UnitPriceMicros)
	}
	if res.TokenizationCostMicros != 25_000_000 {
		t.Fatalf("unexpected tokenization cost: %d", res.TokenizationCostMicros)
	}
	if res.TotalMicros() != 1_875_000_000 {
		t.Fatalf("unexpected total: %d", res.TotalMicros())
	}
}

func TestService_ResolvePriceRejectsUnapprovedCurrency(t *testing.T) {
	repo := newFakeRepository()
	_, fingerprintID := seedFixedCategory(repo, 1_850_000_000, "USD")
	svc, _ := NewService(repo)

	_, err := svc.ResolvePrice(context.Background(), fingerprintID, enums.CurrencyUSDT)
	if err == nil {
		t.Fatal("expected currency approval error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestService_ResolvePriceOracle(t *testing.T) {
	repo := newFakeRepository()
	categoryID := uuid.New()
	fingerprintID := uuid.New()
	repo.categories[categoryID] = &models.Category{
		ID:                 categoryID,
		PriceSource:        enums.PriceSourceOracle,
		ApprovedCurrencies: pq.StringArray{"USDC"},
	}
	repo.fingerprints[fingerprintID] = &models.Fingerprint{ID: fingerprintID, CategoryID: categoryID}
	svc, _ := NewService(repo)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return base }

	repo.quotes[fingerprintID] = &models.PriceQuote{
		FingerprintID:          fingerprintID,
		Currency:               enums.CurrencyUSDC,
		PriceMicros:            2_040_000_000,
		TokenizationCostMicros: 10_000_000,
		QuotedAt:               base.Add(-10 * time.Minute),
	}

	res, err := svc.ResolvePrice(context.Background(), fingerprintID, enums.CurrencyUSDC)
	if err != nil {
		t.Fatalf("ResolvePrice error: %v", err)
	}
	if res.UnitPriceMicros != 2_040_000_000 {
		t.Fatalf("unexpected price: %d", res.UnitPriceMicros)
	}
	if res.TotalMicros() != 2_050_000_000 {
		t.Fatalf("unexpected total: %d", res.TotalMicros())
	}

	// Same quote two hours later is too old to sell against.
	svc.(*service).now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := svc.ResolvePrice(context.Background(), fingerprintID, enums.CurrencyUSDC); err == nil {
		t.Fatal("expected stale quote error")
	}
}

func TestService_ResolvePriceOracleMissingQuote(t *testing.T) {
	repo := newFakeRepository()
	categoryID := uuid.New()
	fingerprintID := uuid.New()
	repo.categories[categoryID] = &models.Category{
		ID:                 categoryID,
		PriceSource:        enums.PriceSourceOracle,
		ApprovedCurrencies: pq.StringArray{"USD"},
	}
	repo.fingerprints[fingerprintID] = &models.Fingerprint{ID: fingerprintID, CategoryID: categoryID}
	svc, _ := NewService(repo)

	_, err := svc.ResolvePrice(context.Background(), fingerprintID, enums.CurrencyUSD)
	if err == nil {
		t.Fatal("expected missing quote error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestService_SubmitQuote(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(repo)

	quote, err := svc.SubmitQuote(context.Background(), SubmitQuoteInput{
		CategoryID:    uuid.New(),
		FingerprintID: uuid.New(),
		Currency:      enums.CurrencyUSD,
		PriceMicros:   3_100_000_000,
	})
	if err != nil {
		t.Fatalf("SubmitQuote error: %v", err)
	}
	if quote.QuotedAt.IsZero() {
		t.Fatal("expected quoted-at timestamp to be stamped")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one quote created, got %d", len(repo.created))
	}
}

func TestService_DecrementStock(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(repo)

	fingerprintID := uuid.New()
	repo.stock[fingerprintID] = 1

	if err := svc.DecrementStock(context.Background(), &gorm.DB{}, fingerprintID); err != nil {
		t.Fatalf("DecrementStock error: %v", err)
	}
	err := svc.DecrementStock(context.Background(), &gorm.DB{}, fingerprintID)
	if err == nil {
		t.Fatal("expected out of stock error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeEconomic {
		t.Fatalf("expected economic constraint, got %v", err)
	}
}
