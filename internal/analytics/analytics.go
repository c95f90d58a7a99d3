package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/internal/products"
	"github.com/jmercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
)

// Overview is the admin dashboard headline block.
type Overview struct {
	TotalRevenueCents int64  `json:"total_revenue_cents"`
	TotalRevenue      string `json:"total_revenue"`
	PaidOrders        int64  `json:"paid_orders"`
	PendingOrders     int64  `json:"pending_orders"`
	FailedOrders      int64  `json:"failed_orders"`
	TotalUsers        int64  `json:"total_users"`
	NewUsers          int64  `json:"new_users"`
	ActiveProducts    int64  `json:"active_products"`
}

// RevenuePoint is revenue bucketed by day.
type RevenuePoint struct {
	Day          time.Time `json:"day"`
	RevenueCents int64     `json:"revenue_cents"`
	Orders       int64     `json:"orders"`
}

// TopProduct ranks catalog items by paid quantity.
type TopProduct struct {
	ProductID    *uuid.UUID `json:"product_id,omitempty"`
	Name         string     `json:"name"`
	QuantitySold int64      `json:"quantity_sold"`
	RevenueCents int64      `json:"revenue_cents"`
}

// LowStockProduct flags items about to run out.
type LowStockProduct struct {
	ProductID     uuid.UUID `json:"product_id"`
	Title         string    `json:"title"`
	SKU           string    `json:"sku"`
	StockQuantity int       `json:"stock_quantity"`
}

// Window bounds a reporting range; zero values mean unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// Service computes read-only aggregates for the admin dashboard. Only paid
// orders count toward revenue.
type Service interface {
	Overview(ctx context.Context, window Window) (*Overview, error)
	RevenueByDay(ctx context.Context, window Window) ([]RevenuePoint, error)
	TopProducts(ctx context.Context, window Window, limit int) ([]TopProduct, error)
	LowStock(ctx context.Context, threshold int) ([]LowStockProduct, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds the analytics service over a read-only DB handle.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle is required")
	}
	return &service{db: db}, nil
}

func (s *service) Overview(ctx context.Context, window Window) (*Overview, error) {
	var out Overview

	row := struct {
		RevenueCents int64
		PaidOrders   int64
	}{}
	qb := s.db.WithContext(ctx).
		Table("orders").
		Select("COALESCE(SUM(total_cents), 0) AS revenue_cents, COUNT(*) AS paid_orders").
		Where("payment_status = ?", enums.PaymentStatusPaid)
	qb = applyWindow(qb, "paid_at", window)
	if err := qb.Scan(&row).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate revenue")
	}
	out.TotalRevenueCents = row.RevenueCents
	out.TotalRevenue = products.FormatPrice(row.RevenueCents)
	out.PaidOrders = row.PaidOrders

	if err := s.countOrders(ctx, enums.PaymentStatusPending, &out.PendingOrders); err != nil {
		return nil, err
	}
	if err := s.countOrders(ctx, enums.PaymentStatusFailed, &out.FailedOrders); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Table("users").Count(&out.TotalUsers).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	newUsers := s.db.WithContext(ctx).Table("users")
	newUsers = applyWindow(newUsers, "created_at", window)
	if err := newUsers.Count(&out.NewUsers).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count new users")
	}

	if err := s.db.WithContext(ctx).
		Table("products").
		Where("is_active = ?", true).
		Count(&out.ActiveProducts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}

	return &out, nil
}

func (s *service) RevenueByDay(ctx context.Context, window Window) ([]RevenuePoint, error) {
	qb := s.db.WithContext(ctx).
		Table("orders").
		Select("date_trunc('day', paid_at) AS day, COALESCE(SUM(total_cents), 0) AS revenue_cents, COUNT(*) AS orders").
		Where("payment_status = ?", enums.PaymentStatusPaid).
		Where("paid_at IS NOT NULL")
	qb = applyWindow(qb, "paid_at", window)

	var points []RevenuePoint
	if err := qb.Group("1").Order("day ASC").Scan(&points).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate daily revenue")
	}
	return points, nil
}

func (s *service) TopProducts(ctx context.Context, window Window, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	qb := s.db.WithContext(ctx).
		Table("order_line_items li").
		Select("li.product_id, li.name, SUM(li.quantity) AS quantity_sold, SUM(li.quantity * li.unit_price_cents) AS revenue_cents").
		Joins("JOIN orders o ON o.id = li.order_id").
		Where("o.payment_status = ?", enums.PaymentStatusPaid)
	qb = applyWindow(qb, "o.paid_at", window)

	var rows []TopProduct
	if err := qb.Group("li.product_id, li.name").
		Order("quantity_sold DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate top products")
	}
	return rows, nil
}

func (s *service) LowStock(ctx context.Context, threshold int) ([]LowStockProduct, error) {
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must not be negative")
	}
	if threshold == 0 {
		threshold = 5
	}

	var rows []LowStockProduct
	err := s.db.WithContext(ctx).
		Table("products").
		Select("id AS product_id, title, sku, stock_quantity").
		Where("is_active = ?", true).
		Where("stock_quantity <= ?", threshold).
		Order("stock_quantity ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return rows, nil
}

func (s *service) countOrders(ctx context.Context, status enums.PaymentStatus, out *int64) error {
	if err := s.db.WithContext(ctx).
		Table("orders").
		Where("payment_status = ?", status).
		Count(out).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	return nil
}

func applyWindow(qb *gorm.DB, column string, window Window) *gorm.DB {
	if !window.From.IsZero() {
		qb = qb.Where(column+" >= ?", window.From)
	}
	if !window.To.IsZero() {
		qb = qb.Where(column+" < ?", window.To)
	}
	return qb
}
