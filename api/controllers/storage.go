package controllers

import (
	"net/http"
	"strings"

	"github.com/vaulted-markets/vaulted-backend/api/responses"
	"github.com/vaulted-markets/vaulted-backend/api/validators"
	"github.com/vaulted-markets/vaulted-backend/internal/storagefees"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

type storageFeePayRequest struct {
	Currency string `json:"currency" validate:"required"`
	Months   int    `json:"months" validate:"required,min=1,max=120"`
}

// StorageFeePay extends an asset's vault storage coverage.
func StorageFeePay(svc storagefees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storage fee service unavailable"))
			return
		}

		payerID, actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetID, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body storageFeePayRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(strings.TrimSpace(body.Currency))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency"))
			return
		}

		result, err := svc.Pay(r.Context(), storagefees.PayInput{
			AssetID:        assetID,
			PayerAccountID: payerID,
			Currency:       currency,
			Months:         body.Months,
			Actor:          actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"asset_id":      assetID,
			"amount_micros": result.AmountMicros,
			"paid_thru":     result.PaidThru,
		})
	}
}
