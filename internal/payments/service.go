package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/internal/cart"
	"github.com/jmercado/storefront-backend/internal/orders"
	"github.com/jmercado/storefront-backend/internal/products"
	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// productStockRepo is the narrow product mutation the payment flow needs.
type productStockRepo interface {
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
}

// ConfirmInput identifies the payment being settled. Both the webhook and the
// browser redirect produce the same input, so both funnel into one routine.
// Session-scoped events carry CheckoutSessionID; intent-scoped events may
// carry only PaymentIntentID, which resolves against the id stored at
// checkout time.
// ActorID, when set, restricts the lookup to orders the actor owns; webhook
// callers leave it zero because Stripe's signature already vouches for them.
type ConfirmInput struct {
	CheckoutSessionID string
	PaymentIntentID   string
	ActorID           uuid.UUID
}

// Service settles orders exactly once regardless of how many confirmation
// signals arrive and in which order.
type Service interface {
	ConfirmPayment(ctx context.Context, input ConfirmInput) (*orders.OrderDTO, error)
	FailPayment(ctx context.Context, input ConfirmInput) (*orders.OrderDTO, error)
}

type service struct {
	tx          txRunner
	ordersRepo  orders.Repository
	cartRepo    *cart.Repository
	productRepo ProductStockSource
	logg        *logger.Logger
}

// ProductStockSource yields a transaction-scoped stock mutator.
type ProductStockSource interface {
	StockRepoWithTx(tx *gorm.DB) productStockRepo
}

// StockSource adapts the catalog repository to the payment flow.
type StockSource struct {
	Repo *products.Repository
}

func (s StockSource) StockRepoWithTx(tx *gorm.DB) productStockRepo {
	return s.Repo.WithTx(tx)
}

// ServiceParams bundles the dependencies for the payment service.
type ServiceParams struct {
	TxRunner    txRunner
	OrdersRepo  orders.Repository
	CartRepo    *cart.Repository
	ProductRepo ProductStockSource
	Logger      *logger.Logger
}

// NewService builds the payment settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.ProductRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{
		tx:          params.TxRunner,
		ordersRepo:  params.OrdersRepo,
		cartRepo:    params.CartRepo,
		productRepo: params.ProductRepo,
		logg:        params.Logger,
	}, nil
}

// resolveOrder locates the order behind a confirmation signal, preferring the
// checkout session id when both references are present.
func resolveOrder(ctx context.Context, repo orders.Repository, input ConfirmInput) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	if input.CheckoutSessionID != "" {
		order, err = repo.FindByCheckoutSessionID(ctx, input.CheckoutSessionID)
	} else {
		order, err = repo.FindByPaymentIntentID(ctx, input.PaymentIntentID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found for payment reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if input.ActorID != uuid.Nil && order.UserID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment reference")
	}
	return order, nil
}

// ConfirmPayment transitions the order to paid, decrements stock, and empties
// the buyer's cart, all in one transaction. The guarded status update makes
// the whole routine idempotent: a repeat signal finds no pending row and
// returns the already-settled order unchanged.
func (s *service) ConfirmPayment(ctx context.Context, input ConfirmInput) (*orders.OrderDTO, error) {
	if input.CheckoutSessionID == "" && input.PaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	var settled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		order, err := resolveOrder(ctx, repo, input)
		if err != nil {
			return err
		}

		won, err := repo.MarkPaid(ctx, order.ID, input.PaymentIntentID, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !won {
			// Another confirmation path already settled (or failed) this
			// order. Return its current state without side effects.
			settled, err = repo.FindByID(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			if settled.PaymentStatus != enums.PaymentStatusPaid {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable")
			}
			return nil
		}

		stockRepo := s.productRepo.StockRepoWithTx(tx)
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			ok, err := stockRepo.DecrementStock(ctx, *item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				// Rolls back the paid transition too; the order stays
				// pending so the exhaustion is visible on retries.
				return pkgerrors.New(pkgerrors.CodeStockExhausted, fmt.Sprintf("insufficient stock for %s", item.Name))
			}
		}

		cartRepo := s.cartRepo.WithTx(tx)
		buyerCart, err := cartRepo.FindByUserID(ctx, order.UserID)
		if err == nil {
			if err := cartRepo.ClearItems(ctx, buyerCart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		settled, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if s.logg != nil {
			ref := input.CheckoutSessionID
			if ref == "" {
				ref = input.PaymentIntentID
			}
			s.logg.Info(ctx, fmt.Sprintf("order %s settled for %s", order.ID, ref))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders.NewOrderDTO(settled), nil
}

// FailPayment records a declined or expired payment. A repeat signal is a
// no-op under the same pending guard.
func (s *service) FailPayment(ctx context.Context, input ConfirmInput) (*orders.OrderDTO, error) {
	if input.CheckoutSessionID == "" && input.PaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		order, err := resolveOrder(ctx, repo, input)
		if err != nil {
			return err
		}

		if _, err := repo.MarkFailed(ctx, order.ID, input.PaymentIntentID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order failed")
		}

		result, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders.NewOrderDTO(result), nil
}
