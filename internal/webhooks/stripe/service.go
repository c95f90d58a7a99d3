package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/jmercado/storefront-backend/internal/payments"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/logger"
)

// Service translates checkout and payment intent lifecycle events into
// payment settlements.
type Service struct {
	payments payments.Service
	logg     *logger.Logger
}

// NewService builds the webhook event handler.
func NewService(paymentsSvc payments.Service, logg *logger.Logger) (*Service, error) {
	if paymentsSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &Service{payments: paymentsSvc, logg: logg}, nil
}

// HandleEvent dispatches a verified Stripe event. Unrecognized event types are
// acknowledged without side effects so Stripe stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		_, err = s.payments.ConfirmPayment(ctx, confirmInput(session))
		return err
	case stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		_, err = s.payments.FailPayment(ctx, confirmInput(session))
		return err
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		_, err = s.payments.ConfirmPayment(ctx, payments.ConfirmInput{PaymentIntentID: intent.ID})
		return err
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		_, err = s.payments.FailPayment(ctx, payments.ConfirmInput{PaymentIntentID: intent.ID})
		return err
	default:
		if s.logg != nil {
			s.logg.Info(ctx, fmt.Sprintf("ignoring stripe event type %s", event.Type))
		}
		return nil
	}
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
	}
	if session.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return &session, nil
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func confirmInput(session *stripe.CheckoutSession) payments.ConfirmInput {
	input := payments.ConfirmInput{CheckoutSessionID: session.ID}
	if session.PaymentIntent != nil {
		input.PaymentIntentID = session.PaymentIntent.ID
	}
	return input
}
