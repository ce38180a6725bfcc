package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/api/responses"
	"github.com/vaulted-markets/vaulted-backend/api/validators"
	"github.com/vaulted-markets/vaulted-backend/internal/marketplace"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

type buyUnmintedRequest struct {
	CategoryID    string `json:"category_id" validate:"required"`
	FingerprintID string `json:"fingerprint_id" validate:"required"`
	Currency      string `json:"currency" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,min=1"`
}

// MarketBuyUnminted purchases newly minted stock from the issuer.
func MarketBuyUnminted(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		buyerID, actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body buyUnmintedRequest
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

		asset, err := svc.BuyUnminted(r.Context(), marketplace.BuyUnmintedInput{
			CategoryID:     categoryID,
			FingerprintID:  fingerprintID,
			BuyerAccountID: buyerID,
			Currency:       currency,
			Quantity:       body.Quantity,
			Actor:          actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, asset)
	}
}

type sellItemRequest struct {
	AssetID string `json:"asset_id" validate:"required"`
	// Zero asks for the oracle quote at fill time.
	PriceMicros int64 `json:"price_micros" validate:"min=0"`
}

type sellBatchRequest struct {
	Currency          string            `json:"currency" validate:"required"`
	ReferrerAccountID string            `json:"referrer_account_id" validate:"omitempty,uuid"`
	Items             []sellItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

// MarketSell lists a batch of the caller's assets for sale.
func MarketSell(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		sellerID, actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sellBatchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(strings.TrimSpace(body.Currency))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency"))
			return
		}

		var referrerID *uuid.UUID
		if raw := strings.TrimSpace(body.ReferrerAccountID); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid referrer_account_id"))
				return
			}
			referrerID = &parsed
		}

		items := make([]marketplace.SellItem, 0, len(body.Items))
		for _, item := range body.Items {
			assetID, err := uuid.Parse(strings.TrimSpace(item.AssetID))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset_id"))
				return
			}
			items = append(items, marketplace.SellItem{
				AssetID:     assetID,
				PriceMicros: item.PriceMicros,
			})
		}

		listings, err := svc.SellBatch(r.Context(), marketplace.SellBatchInput{
			SellerAccountID:   sellerID,
			ReferrerAccountID: referrerID,
			Currency:          currency,
			Items:             items,
			Actor:             actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, listings)
	}
}

type stopBatchRequest struct {
	AssetIDs []string `json:"asset_ids" validate:"required,min=1,max=50"`
}

// MarketStop withdraws the caller's active listings.
func MarketStop(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		sellerID, actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body stopBatchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetIDs := make([]uuid.UUID, 0, len(body.AssetIDs))
		for _, raw := range body.AssetIDs {
			assetID, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset_id"))
				return
			}
			assetIDs = append(assetIDs, assetID)
		}

		stopped, err := svc.StopBatchSale(r.Context(), marketplace.StopBatchInput{
			SellerAccountID: sellerID,
			AssetIDs:        assetIDs,
			Actor:           actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"stopped": stopped})
	}
}

// MarketBuy fills one secondary-market listing.
func MarketBuy(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		buyerID, actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Buy(r.Context(), marketplace.BuyInput{
			ListingID:      listingID,
			BuyerAccountID: buyerID,
			Actor:          actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"asset":               result.Asset,
			"price_micros":        result.PriceMicros,
			"fee_micros":          result.FeeMicros,
			"seller_net_micros":   result.SellerNetMicros,
			"rent_settled_micros": result.RentSettledMicros,
		})
	}
}

// MarketListings browses active listings.
func MarketListings(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		perPage, err := validators.ParseQueryInt(r, "per_page", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := marketplace.ListingFilter{Page: page, PerPage: perPage}
		if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
			categoryID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category_id"))
				return
			}
			filter.CategoryID = &categoryID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("seller_account_id")); raw != "" {
			sellerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller_account_id"))
				return
			}
			filter.SellerAccountID = &sellerID
		}

		listings, total, err := svc.ListListings(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"listings": listings,
			"total":    total,
			"page":     page,
			"per_page": perPage,
		})
	}
}
