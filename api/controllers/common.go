package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/api/middleware"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
)

// caller resolves the authenticated account from the request context.
func caller(r *http.Request) (uuid.UUID, *outbox.ActorRef, error) {
	raw := middleware.AccountIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing")
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id")
	}
	return accountID, &outbox.ActorRef{
		AccountID: accountID,
		Role:      middleware.RoleFromContext(r.Context()),
	}, nil
}

func parseBearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

// pathUUID parses a uuid URL parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
