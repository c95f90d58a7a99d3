package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/jmercado/storefront-backend/api/middleware"
	ordersvc "github.com/jmercado/storefront-backend/internal/orders"
	paymentsvc "github.com/jmercado/storefront-backend/internal/payments"
	"github.com/jmercado/storefront-backend/pkg/enums"
)

type stubPaymentVerifier struct {
	session *stripe.CheckoutSession
}

func (s *stubPaymentVerifier) GetSession(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return s.session, nil
}

func (s *stubPaymentVerifier) GetPaymentIntent(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusSucceeded}, nil
}

type stubSettlement struct {
	confirmed bool
	order     *ordersvc.OrderDTO
}

func (s *stubSettlement) ConfirmPayment(ctx context.Context, input paymentsvc.ConfirmInput) (*ordersvc.OrderDTO, error) {
	s.confirmed = true
	return s.order, nil
}

func (s *stubSettlement) FailPayment(ctx context.Context, input paymentsvc.ConfirmInput) (*ordersvc.OrderDTO, error) {
	panic("unimplemented")
}

func TestConfirmCheckout(t *testing.T) {
	logg := cartTestLogger()
	buyerID := uuid.New()

	newConfirmService := func(t *testing.T, owner uuid.UUID, settlement *stubSettlement) *paymentsvc.ClientConfirmService {
		t.Helper()
		verifier := &stubPaymentVerifier{
			session: &stripe.CheckoutSession{
				ID:            "cs_test_handler",
				PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
				Metadata:      map[string]string{"user_id": owner.String()},
			},
		}
		svc, err := paymentsvc.NewClientConfirmService(verifier, settlement)
		if err != nil {
			t.Fatalf("build confirm service: %v", err)
		}
		return svc
	}

	t.Run("missing credentials", func(t *testing.T) {
		svc := newConfirmService(t, buyerID, &stubSettlement{})
		body := `{"checkout_session_id":"cs_test_handler"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", strings.NewReader(body))
		rec := httptest.NewRecorder()
		ConfirmCheckout(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without user context, got %d", rec.Code)
		}
	})

	t.Run("requires a payment reference", func(t *testing.T) {
		settlement := &stubSettlement{}
		svc := newConfirmService(t, buyerID, settlement)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", strings.NewReader(`{}`))
		req = req.WithContext(middleware.WithUserID(req.Context(), buyerID.String()))
		rec := httptest.NewRecorder()
		ConfirmCheckout(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for empty body, got %d", rec.Code)
		}
		if settlement.confirmed {
			t.Fatalf("settlement should not run without a reference")
		}
	})

	t.Run("another buyer's session reads as missing", func(t *testing.T) {
		settlement := &stubSettlement{}
		svc := newConfirmService(t, buyerID, settlement)
		body := `{"checkout_session_id":"cs_test_handler"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", strings.NewReader(body))
		req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
		rec := httptest.NewRecorder()
		ConfirmCheckout(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for a session owned by someone else, got %d", rec.Code)
		}
		if settlement.confirmed {
			t.Fatalf("settlement must not run for a foreign session")
		}
	})

	t.Run("owner settles", func(t *testing.T) {
		orderID := uuid.New()
		settlement := &stubSettlement{order: &ordersvc.OrderDTO{ID: orderID, UserID: buyerID, PaymentStatus: enums.PaymentStatusPaid}}
		svc := newConfirmService(t, buyerID, settlement)
		body := `{"checkout_session_id":"cs_test_handler"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", strings.NewReader(body))
		req = req.WithContext(middleware.WithUserID(req.Context(), buyerID.String()))
		rec := httptest.NewRecorder()
		ConfirmCheckout(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
		}
		if !settlement.confirmed {
			t.Fatalf("expected settlement to run for the owner")
		}

		var envelope struct {
			Data ordersvc.OrderDTO `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.ID != orderID {
			t.Fatalf("unexpected envelope: %+v", envelope)
		}
	})
}
