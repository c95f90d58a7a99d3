package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/jmercado/storefront-backend/internal/orders"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
)

type paymentVerifier interface {
	GetSession(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// ConfirmRequest carries the client-supplied payment reference. The browser
// redirect knows the checkout session id; embedded payment flows know only
// the payment intent id. Exactly one is required.
type ConfirmRequest struct {
	CheckoutSessionID string
	PaymentIntentID   string
}

// ClientConfirmService settles an order from the browser's post-payment
// redirect. The reference from the redirect URL is never trusted on its own;
// the session or intent is re-fetched from Stripe and only a successful one
// settles.
type ClientConfirmService struct {
	stripe   paymentVerifier
	payments Service
}

// NewClientConfirmService builds the redirect confirmation adapter.
func NewClientConfirmService(stripeClient paymentVerifier, paymentsSvc Service) (*ClientConfirmService, error) {
	if stripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &ClientConfirmService{stripe: stripeClient, payments: paymentsSvc}, nil
}

// Confirm verifies the referenced payment's state with Stripe, then funnels
// into the same idempotent settlement as the webhook. The caller must own the
// order; a mismatch reads the same as a reference that never existed.
func (s *ClientConfirmService) Confirm(ctx context.Context, userID uuid.UUID, req ConfirmRequest) (*orders.OrderDTO, error) {
	sessionID := strings.TrimSpace(req.CheckoutSessionID)
	intentID := strings.TrimSpace(req.PaymentIntentID)
	if sessionID == "" && intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	if sessionID != "" {
		return s.confirmBySession(ctx, userID, sessionID)
	}
	return s.confirmByIntent(ctx, userID, intentID)
}

func (s *ClientConfirmService) confirmBySession(ctx context.Context, userID uuid.UUID, sessionID string) (*orders.OrderDTO, error) {
	session, err := s.stripe.GetSession(ctx, sessionID, &stripe.CheckoutSessionParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentError, err, "fetch checkout session")
	}
	if owner := session.Metadata["user_id"]; owner != userID.String() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not completed")
	}

	input := ConfirmInput{CheckoutSessionID: session.ID, ActorID: userID}
	if session.PaymentIntent != nil {
		input.PaymentIntentID = session.PaymentIntent.ID
	}
	return s.payments.ConfirmPayment(ctx, input)
}

func (s *ClientConfirmService) confirmByIntent(ctx context.Context, userID uuid.UUID, intentID string) (*orders.OrderDTO, error) {
	intent, err := s.stripe.GetPaymentIntent(ctx, intentID, &stripe.PaymentIntentParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentError, err, "fetch payment intent")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment intent status is %s", intent.Status))
	}

	// Ownership resolves against the order row; the intent carries no
	// caller metadata of its own.
	return s.payments.ConfirmPayment(ctx, ConfirmInput{PaymentIntentID: intent.ID, ActorID: userID})
}
