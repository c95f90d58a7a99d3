package controllers

import (
	"net/http"

	"github.com/jmercado/storefront-backend/api/responses"
	"github.com/jmercado/storefront-backend/api/validators"
	paymentsvc "github.com/jmercado/storefront-backend/internal/payments"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/logger"
)

type confirmCheckoutRequest struct {
	CheckoutSessionID string `json:"checkout_session_id" validate:"required_without=PaymentIntentID"`
	PaymentIntentID   string `json:"payment_intent_id" validate:"required_without=CheckoutSessionID"`
}

// ConfirmCheckout settles an order after the browser returns from the hosted
// payment page. The referenced session or intent is re-fetched from the
// provider, so a client cannot confirm a payment that never completed, and
// the order must belong to the caller. The webhook races this endpoint;
// whichever lands first settles the order and the other is a no-op.
func ConfirmCheckout(svc *paymentsvc.ClientConfirmService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Confirm(r.Context(), userID, paymentsvc.ConfirmRequest{
			CheckoutSessionID: payload.CheckoutSessionID,
			PaymentIntentID:   payload.PaymentIntentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
