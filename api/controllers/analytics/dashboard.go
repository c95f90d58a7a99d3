package analytics

import (
	"net/http"

	"github.com/jmercado/storefront-backend/api/responses"
	"github.com/jmercado/storefront-backend/api/validators"
	"github.com/jmercado/storefront-backend/internal/analytics"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/logger"
)

// Overview serves the admin dashboard headline numbers.
func Overview(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		window, err := resolveWindow(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.Overview(ctx, window)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// RevenueByDay serves the paid revenue time series.
func RevenueByDay(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		window, err := resolveWindow(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		points, err := service.RevenueByDay(ctx, window)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, points)
	}
}

// TopProducts serves the best sellers ranked by paid revenue.
func TopProducts(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		window, err := resolveWindow(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.TopProducts(ctx, window, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// LowStock lists active products at or below the restock threshold.
func LowStock(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		threshold, err := validators.ParseQueryInt(r, "threshold", 5, 0, 10000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.LowStock(ctx, threshold)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
