package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmercado/storefront-backend/api/responses"
	"github.com/jmercado/storefront-backend/api/validators"
	userssvc "github.com/jmercado/storefront-backend/internal/users"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/logger"
)

// AdminListUsers pages through every account, newest first.
func AdminListUsers(svc userssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListUsers(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type setUserActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AdminSetUserActive toggles an account's moderation flag.
func AdminSetUserActive(svc userssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "userID"), "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setUserActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SetUserActive(r.Context(), id, *payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
