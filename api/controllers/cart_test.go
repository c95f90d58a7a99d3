package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jmercado/storefront-backend/api/middleware"
	cartsvc "github.com/jmercado/storefront-backend/internal/cart"
	"github.com/jmercado/storefront-backend/pkg/logger"
)

type stubCartService struct {
	addCalled    bool
	addUserID    uuid.UUID
	addProductID uuid.UUID
	addQuantity  int
	cart         *cartsvc.CartDTO
	err          error
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
	s.addCalled = true
	s.addUserID = userID
	s.addProductID = productID
	s.addQuantity = quantity
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
	panic("unimplemented")
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cartsvc.CartDTO, error) {
	panic("unimplemented")
}

func (s *stubCartService) ClearCart(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	panic("unimplemented")
}

func cartTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func TestAddCartItem(t *testing.T) {
	logg := cartTestLogger()
	userID := uuid.New()
	productID := uuid.New()

	t.Run("missing credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		AddCartItem(&stubCartService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without user context, got %d", rec.Code)
		}
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		body := `{"product_id":"` + productID.String() + `","quantity":0}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
		stub := &stubCartService{}
		rec := httptest.NewRecorder()
		AddCartItem(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for zero quantity, got %d", rec.Code)
		}
		if stub.addCalled {
			t.Fatalf("service should not run on invalid payload")
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		body := `{"product_id":"` + productID.String() + `","quantity":1,"color":"red"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
		rec := httptest.NewRecorder()
		AddCartItem(&stubCartService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubCartService{cart: &cartsvc.CartDTO{ID: uuid.New(), UserID: userID, Items: []cartsvc.CartItemDTO{}}}
		body := `{"product_id":"` + productID.String() + `","quantity":3}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
		rec := httptest.NewRecorder()
		AddCartItem(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
		}
		if !stub.addCalled {
			t.Fatalf("expected AddItem to be invoked")
		}
		if stub.addUserID != userID || stub.addProductID != productID || stub.addQuantity != 3 {
			t.Fatalf("service received wrong arguments: %v %v %d", stub.addUserID, stub.addProductID, stub.addQuantity)
		}

		var envelope struct {
			Data cartsvc.CartDTO `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.UserID != userID {
			t.Fatalf("expected cart for user %s, got %s", userID, envelope.Data.UserID)
		}
	})
}

func TestUpdateCartItemRejectsBadProductID(t *testing.T) {
	logg := cartTestLogger()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/not-a-uuid", strings.NewReader(`{"quantity":2}`))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productID", "not-a-uuid")
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	ctx = middleware.WithUserID(ctx, uuid.NewString())
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	UpdateCartItem(&stubCartService{}, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid product id, got %d", rec.Code)
	}
}

func TestGetCartRequiresService(t *testing.T) {
	logg := cartTestLogger()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	GetCart(nil, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when service missing, got %d", rec.Code)
	}
}
