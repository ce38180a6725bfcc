package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/api/responses"
	"github.com/vaulted-markets/vaulted-backend/api/validators"
	"github.com/vaulted-markets/vaulted-backend/internal/pricing"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

type quoteSubmitRequest struct {
	CategoryID             string     `json:"category_id" validate:"required"`
	FingerprintID          string     `json:"fingerprint_id" validate:"required"`
	Currency               string     `json:"currency" validate:"required"`
	PriceMicros            int64      `json:"price_micros" validate:"required,min=1"`
	TokenizationCostMicros int64      `json:"tokenization_cost_micros" validate:"min=0"`
	QuotedAt               *time.Time `json:"quoted_at"`
}

// QuoteSubmit records an oracle price observation for a fingerprint.
func QuoteSubmit(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var body quoteSubmitRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryID, err := uuid.Parse(strings.TrimSpace(body.CategoryID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category_id"))
			return
		}
		fingerprintID, err := uuid.Parse(strings.TrimSpace(body.FingerprintID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fingerprint_id"))
			return
		}
		currency, err := enums.ParseCurrency(strings.TrimSpace(body.Currency))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency"))
			return
		}

		quotedAt := time.Now().UTC()
		if body.QuotedAt != nil {
			quotedAt = body.QuotedAt.UTC()
		}

		quote, err := svc.SubmitQuote(r.Context(), pricing.SubmitQuoteInput{
			CategoryID:             categoryID,
			FingerprintID:          fingerprintID,
			Currency:               currency,
			PriceMicros:            body.PriceMicros,
			TokenizationCostMicros: body.TokenizationCostMicros,
			QuotedAt:               quotedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

type fixedPriceRequest struct {
	PriceMicros            int64 `json:"price_micros" validate:"required,min=1"`
	TokenizationCostMicros int64 `json:"tokenization_cost_micros" validate:"min=0"`
}

// FixedPriceSet pins the primary-market price of a fingerprint.
func FixedPriceSet(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		fingerprintID, err := pathUUID(r, "fingerprintId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body fixedPriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.SetFixedPrice(r.Context(), pricing.SetFixedPriceInput{
			FingerprintID:          fingerprintID,
			PriceMicros:            body.PriceMicros,
			TokenizationCostMicros: body.TokenizationCostMicros,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// PriceResolve returns the current unit price for a fingerprint.
func PriceResolve(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		fingerprintID, err := pathUUID(r, "fingerprintId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(strings.TrimSpace(r.URL.Query().Get("currency")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency"))
			return
		}

		resolved, err := svc.ResolvePrice(r.Context(), fingerprintID, currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"fingerprint_id":           fingerprintID,
			"currency":                 currency,
			"unit_price_micros":        resolved.UnitPriceMicros,
			"tokenization_cost_micros": resolved.TokenizationCostMicros,
			"total_micros":             resolved.TotalMicros(),
		})
	}
}
