package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/internal/cart"
	"github.com/jmercado/storefront-backend/internal/orders"
	"github.com/jmercado/storefront-backend/internal/products"
	"github.com/jmercado/storefront-backend/pkg/config"
	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
)

const cartLockScope = "checkout_cart"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type cartLocker interface {
	AcquireLock(ctx context.Context, scope, id string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope, id string) error
}

// Service starts a checkout: it validates the cart, recomputes the total from
// current catalog prices, opens a hosted payment session, and persists the
// pending order.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error)
}

type service struct {
	tx          txRunner
	cartRepo    *cart.Repository
	ordersRepo  orders.Repository
	productRepo productLoader
	stripe      StripeCheckoutClient
	locker      cartLocker
	stripeCfg   config.StripeConfig
	checkoutCfg config.CheckoutConfig
}

// ServiceParams bundles the dependencies for the checkout service.
type ServiceParams struct {
	TxRunner       txRunner
	CartRepo       *cart.Repository
	OrdersRepo     orders.Repository
	ProductRepo    productLoader
	StripeClient   StripeCheckoutClient
	CartLocker     cartLocker
	StripeConfig   config.StripeConfig
	CheckoutConfig config.CheckoutConfig
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.ProductRepo == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.CartLocker == nil {
		return nil, fmt.Errorf("cart locker required")
	}
	return &service{
		tx:          params.TxRunner,
		cartRepo:    params.CartRepo,
		ordersRepo:  params.OrdersRepo,
		productRepo: params.ProductRepo,
		stripe:      params.StripeClient,
		locker:      params.CartLocker,
		stripeCfg:   params.StripeConfig,
		checkoutCfg: params.CheckoutConfig,
	}, nil
}

func (s *service) Execute(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ShippingAddress != nil && input.ShippingAddress.IsZero() {
		input.ShippingAddress = nil
	}

	record, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	// One checkout per cart at a time; a second request while the hosted
	// session is being set up gets a conflict instead of a duplicate order.
	acquired, err := s.locker.AcquireLock(ctx, cartLockScope, record.ID.String(), s.checkoutCfg.CartLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cart lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress for this cart")
	}
	defer func() {
		_ = s.locker.ReleaseLock(context.WithoutCancel(ctx), cartLockScope, record.ID.String())
	}()

	lines, totalCents, currency, err := s.priceCart(ctx, record.Items)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, userID, record.ID, lines, currency)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:                  userID,
		TotalCents:              totalCents,
		Currency:                currency,
		ShippingAddress:         input.ShippingAddress,
		StripeCheckoutSessionID: session.ID,
		PaymentStatus:           enums.PaymentStatusPending,
		FulfillmentStatus:       enums.FulfillmentStatusPending,
	}
	// Hosted sessions in payment mode carry their intent from the start;
	// storing it lets intent-scoped webhook events find the order later.
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		intentID := session.PaymentIntent.ID
		order.StripePaymentIntentID = &intentID
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		created, err := repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderLineItem, 0, len(lines))
		for _, line := range lines {
			productID := line.product.ID
			items = append(items, models.OrderLineItem{
				OrderID:        created.ID,
				ProductID:      &productID,
				Name:           line.product.Title,
				Quantity:       line.quantity,
				UnitPriceCents: line.product.PriceCents,
			})
		}
		if err := repo.CreateLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		OrderID:           order.ID,
		CheckoutSessionID: session.ID,
		CheckoutURL:       session.URL,
		TotalCents:        totalCents,
		Total:             products.FormatPrice(totalCents),
	}, nil
}

type pricedLine struct {
	product  *models.Product
	quantity int
}

// priceCart reprices every line from the catalog's current state. Cart
// snapshots are never trusted for money.
func (s *service) priceCart(ctx context.Context, items []models.CartItem) ([]pricedLine, int64, enums.Currency, error) {
	lines := make([]pricedLine, 0, len(items))
	var totalCents int64
	currency := enums.CurrencyUSD

	for i, item := range items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, "", pkgerrors.New(pkgerrors.CodeConflict, "a cart item is no longer available")
			}
			return nil, 0, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.IsActive {
			return nil, 0, "", pkgerrors.New(pkgerrors.CodeConflict, "a cart item is no longer available")
		}
		if product.StockQuantity < item.Quantity {
			return nil, 0, "", pkgerrors.New(pkgerrors.CodeStockExhausted, fmt.Sprintf("insufficient stock for %s", product.Title))
		}
		if i == 0 {
			currency = product.Currency
		} else if product.Currency != currency {
			return nil, 0, "", pkgerrors.New(pkgerrors.CodeValidation, "cart mixes currencies")
		}

		totalCents += product.PriceCents * int64(item.Quantity)
		lines = append(lines, pricedLine{product: product, quantity: item.Quantity})
	}

	return lines, totalCents, currency, nil
}

func (s *service) createSession(ctx context.Context, userID, cartID uuid.UUID, lines []pricedLine, currency enums.Currency) (*stripe.CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(lines))
	for _, line := range lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(line.quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(currency)),
				UnitAmount: stripe.Int64(line.product.PriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.product.Title),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.stripeCfg.SuccessURL),
		CancelURL:  stripe.String(s.stripeCfg.CancelURL),
		LineItems:  lineItems,
	}
	params.AddMetadata("user_id", userID.String())
	params.AddMetadata("cart_id", cartID.String())

	session, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentError, err, "create checkout session")
	}
	return session, nil
}
