package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/api/responses"
	"github.com/vaulted-markets/vaulted-backend/api/validators"
	"github.com/vaulted-markets/vaulted-backend/internal/registry"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

type categoryCreateRequest struct {
	Name                   string   `json:"name" validate:"required,min=3,max=128"`
	IssuerAccountID        string   `json:"issuer_account_id" validate:"required"`
	DepositorAccountID     string   `json:"depositor_account_id" validate:"omitempty,uuid"`
	FeeCollectorAccountID  string   `json:"fee_collector_account_id" validate:"omitempty,uuid"`
	PriceSource            string   `json:"price_source" validate:"required"`
	ApprovedCurrencies     []string `json:"approved_currencies" validate:"required,min=1"`
	FeeBps                 *int     `json:"fee_bps"`
	FeeExempt              bool     `json:"fee_exempt"`
	WhitelistRequired      bool     `json:"whitelist_required"`
	StorageFeeAnnualMicros int64    `json:"storage_fee_annual_micros"`
}

func optionalUUID(raw, field string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return &parsed, nil
}

func (r categoryCreateRequest) toInput() (registry.CreateCategoryInput, error) {
	issuerID, err := uuid.Parse(strings.TrimSpace(r.IssuerAccountID))
	if err != nil {
		return registry.CreateCategoryInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid issuer_account_id")
	}
	depositorID, err := optionalUUID(r.DepositorAccountID, "depositor_account_id")
	if err != nil {
		return registry.CreateCategoryInput{}, err
	}
	feeCollectorID, err := optionalUUID(r.FeeCollectorAccountID, "fee_collector_account_id")
	if err != nil {
		return registry.CreateCategoryInput{}, err
	}
	source, err := enums.ParsePriceSource(strings.TrimSpace(r.PriceSource))
	if err != nil {
		return registry.CreateCategoryInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid price source")
	}
	currencies := make([]enums.Currency, 0, len(r.ApprovedCurrencies))
	for _, raw := range r.ApprovedCurrencies {
		currency, err := enums.ParseCurrency(strings.TrimSpace(raw))
		if err != nil {
			return registry.CreateCategoryInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency "+raw)
		}
		currencies = append(currencies, currency)
	}
	return registry.CreateCategoryInput{
		Name:                   validators.SanitizeString(r.Name, 128),
		IssuerAccountID:        issuerID,
		DepositorAccountID:     depositorID,
		FeeCollectorAccountID:  feeCollectorID,
		PriceSource:            source,
		ApprovedCurrencies:     currencies,
		FeeBps:                 r.FeeBps,
		FeeExempt:              r.FeeExempt,
		WhitelistRequired:      r.WhitelistRequired,
		StorageFeeAnnualMicros: r.StorageFeeAnnualMicros,
	}, nil
}

// CategoryCreate registers a new asset category.
func CategoryCreate(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		var body categoryCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.CreateCategory(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

// CategoryList returns all categories.
func CategoryList(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, categories)
	}
}

// CategoryGet returns one category.
func CategoryGet(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		categoryID, err := pathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.GetCategory(r.Context(), categoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, category)
	}
}

type categoryFeeRequest struct {
	FeeBps    *int `json:"fee_bps"`
	FeeExempt bool `json:"fee_exempt"`
}

// CategorySetFee adjusts the marketplace fee terms of a category. Only
// the category owner may call it.
func CategorySetFee(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		callerID, _, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryID, err := pathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body categoryFeeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.SetFee(r.Context(), registry.SetFeeInput{
			CategoryID:      categoryID,
			CallerAccountID: callerID,
			FeeBps:          body.FeeBps,
			FeeExempt:       body.FeeExempt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

type fingerprintCreateRequest struct {
	Value                  int64  `json:"value" validate:"required,min=1"`
	FixedPriceMicros       *int64 `json:"fixed_price_micros"`
	TokenizationCostMicros int64  `json:"tokenization_cost_micros" validate:"min=0"`
	Stock                  int    `json:"stock" validate:"min=0"`
}

// FingerprintCreate declares a product variant within a category.
func FingerprintCreate(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		categoryID, err := pathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body fingerprintCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fingerprint, err := svc.CreateFingerprint(r.Context(), registry.CreateFingerprintInput{
			CategoryID:             categoryID,
			Value:                  body.Value,
			FixedPriceMicros:       body.FixedPriceMicros,
			TokenizationCostMicros: body.TokenizationCostMicros,
			Stock:                  body.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, fingerprint)
	}
}

// FingerprintList returns the variants of one category.
func FingerprintList(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		categoryID, err := pathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fingerprints, err := svc.ListFingerprints(r.Context(), categoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, fingerprints)
	}
}

type whitelistRequest struct {
	AccountID string `json:"account_id" validate:"required"`
}

// WhitelistAdd grants an account access to a gated category.
func WhitelistAdd(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return whitelistMutation(svc, logg, svcWhitelistAdd)
}

// WhitelistRemove revokes category access.
func WhitelistRemove(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return whitelistMutation(svc, logg, svcWhitelistRemove)
}

type whitelistOp func(svc registry.Service, r *http.Request, categoryID, accountID uuid.UUID) error

func svcWhitelistAdd(svc registry.Service, r *http.Request, categoryID, accountID uuid.UUID) error {
	return svc.Whitelist(r.Context(), categoryID, accountID)
}

func svcWhitelistRemove(svc registry.Service, r *http.Request, categoryID, accountID uuid.UUID) error {
	return svc.Unwhitelist(r.Context(), categoryID, accountID)
}

func whitelistMutation(svc registry.Service, logg *logger.Logger, op whitelistOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		categoryID, err := pathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body whitelistRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := uuid.Parse(strings.TrimSpace(body.AccountID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account_id"))
			return
		}

		if err := op(svc, r, categoryID, accountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}
