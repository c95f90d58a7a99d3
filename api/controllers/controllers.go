package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jmercado/storefront-backend/api/middleware"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
)

// actorID extracts the authenticated user's ID from the request context.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor id")
	}
	return id, nil
}
