package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/api/responses"
	"github.com/vaulted-markets/vaulted-backend/api/validators"
	"github.com/vaulted-markets/vaulted-backend/internal/rent"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

type rentDepositRequest struct {
	Currency      string     `json:"currency" validate:"required"`
	AmountMicros  int64      `json:"amount_micros" validate:"required,min=1"`
	Period        *int       `json:"period"`
	CustomEndTime *time.Time `json:"custom_end_time"`
}

// RentDeposit funds a new distribution cycle for an asset.
func RentDeposit(svc rent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rent service unavailable"))
			return
		}

		depositorID, actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetID, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rentDepositRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(strings.TrimSpace(body.Currency))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency"))
			return
		}

		var period *enums.RentPeriod
		if body.Period != nil {
			parsed, err := enums.ParseRentPeriod(*body.Period)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid rent period"))
				return
			}
			period = &parsed
		}

		record, err := svc.Deposit(r.Context(), rent.DepositInput{
			AssetID:            assetID,
			DepositorAccountID: depositorID,
			Currency:           currency,
			AmountMicros:       body.AmountMicros,
			Period:             period,
			CustomEndTime:      body.CustomEndTime,
			Actor:              actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// RentClaimable reports what the owner could claim right now.
func RentClaimable(svc rent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rent service unavailable"))
			return
		}

		assetID, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := svc.Claimable(r.Context(), assetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"asset_id":         assetID,
			"claimable_micros": amount,
		})
	}
}

// RentClaim pays accrued rent out to the asset's owner.
func RentClaim(svc rent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rent service unavailable"))
			return
		}

		callerID, actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetID, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		claimed, err := svc.Claim(r.Context(), rent.ClaimInput{
			AssetID:         assetID,
			CallerAccountID: callerID,
			Actor:           actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"asset_id":       assetID,
			"claimed_micros": claimed,
		})
	}
}

// RentPause halts a running distribution and claws back unvested funds.
func RentPause(svc rent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rent service unavailable"))
			return
		}

		callerID, actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetID, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Pause(r.Context(), rent.PauseInput{
			AssetID:         assetID,
			CallerAccountID: callerID,
			Actor:           actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"asset_id":             assetID,
			"paid_to_owner_micros": result.PaidToOwnerMicros,
			"clawed_back_micros":   result.ClawedBackMicros,
		})
	}
}

type rentDepositorRequest struct {
	NewDepositorAccountID string `json:"new_depositor_account_id" validate:"required"`
}

// RentUpdateDepositor reassigns who funds future cycles for a category.
func RentUpdateDepositor(svc rent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rent service unavailable"))
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

		var body rentDepositorRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		newDepositor, err := uuid.Parse(strings.TrimSpace(body.NewDepositorAccountID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid new_depositor_account_id"))
			return
		}

		err = svc.UpdateDepositor(r.Context(), rent.UpdateDepositorInput{
			CategoryID:          categoryID,
			CallerAccountID:     callerID,
			NewDepositorAccount: newDepositor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// RentRecord returns the distribution state for an asset.
func RentRecord(svc rent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rent service unavailable"))
			return
		}

		assetID, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Record(r.Context(), assetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}
