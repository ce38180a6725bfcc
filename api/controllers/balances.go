package controllers

import (
	"net/http"
	"strings"

	"github.com/vaulted-markets/vaulted-backend/api/responses"
	"github.com/vaulted-markets/vaulted-backend/api/validators"
	"github.com/vaulted-markets/vaulted-backend/internal/treasury"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
	"github.com/vaulted-markets/vaulted-backend/pkg/pagination"
)

type fundsRequest struct {
	Currency     string `json:"currency" validate:"required"`
	AmountMicros int64  `json:"amount_micros" validate:"required,min=1"`
}

// BalanceDeposit credits the caller's balance from an external source.
func BalanceDeposit(svc treasury.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "treasury service unavailable"))
			return
		}

		accountID, _, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body fundsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(strings.TrimSpace(body.Currency))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency"))
			return
		}

		balance, err := svc.Deposit(r.Context(), treasury.DepositInput{
			AccountID:    accountID,
			Currency:     currency,
			AmountMicros: body.AmountMicros,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balance)
	}
}

// BalanceWithdraw debits the caller's balance toward an external destination.
func BalanceWithdraw(svc treasury.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "treasury service unavailable"))
			return
		}

		accountID, _, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body fundsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(strings.TrimSpace(body.Currency))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency"))
			return
		}

		balance, err := svc.Withdraw(r.Context(), treasury.WithdrawInput{
			AccountID:    accountID,
			Currency:     currency,
			AmountMicros: body.AmountMicros,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balance)
	}
}

// BalanceGet returns the caller's balance in one currency.
func BalanceGet(svc treasury.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "treasury service unavailable"))
			return
		}

		accountID, _, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(strings.TrimSpace(r.URL.Query().Get("currency")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency"))
			return
		}

		amount, err := svc.Balance(r.Context(), accountID, currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"account_id":    accountID,
			"currency":      currency,
			"amount_micros": amount,
		})
	}
}

// LedgerEntries returns the caller's most recent money movements.
func LedgerEntries(svc treasury.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "treasury service unavailable"))
			return
		}

		accountID, _, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Entries(r.Context(), accountID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"entries":     page.Entries,
			"next_cursor": page.NextCursor,
		})
	}
}
