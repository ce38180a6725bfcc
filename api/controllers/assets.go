package controllers

import (
	"net/http"

	"github.com/vaulted-markets/vaulted-backend/api/responses"
	"github.com/vaulted-markets/vaulted-backend/api/validators"
	"github.com/vaulted-markets/vaulted-backend/internal/registry"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

// AssetGet returns one asset by id.
func AssetGet(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		assetID, err := pathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asset, err := svc.GetAsset(r.Context(), assetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, asset)
	}
}

// AssetListMine returns the caller's holdings.
func AssetListMine(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		accountID, _, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assets, err := svc.ListAssetsForOwner(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, assets)
	}
}

type assetBlacklistRequest struct {
	Blacklisted bool `json:"blacklisted"`
}

// AssetSetBlacklisted freezes or unfreezes trading for one asset. Only
// the category owner may call it.
func AssetSetBlacklisted(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
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

		var body assetBlacklistRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.SetBlacklisted(r.Context(), registry.SetBlacklistedInput{
			AssetID:         assetID,
			CallerAccountID: callerID,
			Blacklisted:     body.Blacklisted,
			Actor:           actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"asset_id":    assetID,
			"blacklisted": body.Blacklisted,
		})
	}
}
