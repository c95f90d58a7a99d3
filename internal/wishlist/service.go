package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/pkg/db/models"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, userID uuid.UUID, params pagination.Params) (WishlistPageDTO, error)
	GetWishlistIDs(ctx context.Context, userID uuid.UUID) (WishlistIDsDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	wishlistRepo *Repository
	productRepo  productLoader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(wishlistRepo *Repository, productRepo productLoader) (Service, error) {
	if wishlistRepo == nil {
		return nil, fmt.Errorf("wishlist repo is required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repo is required")
	}
	return &service{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
	}, nil
}

// GetWishlist returns the paginated wishlist for a user.
func (s *service) GetWishlist(ctx context.Context, userID uuid.UUID, params pagination.Params) (WishlistPageDTO, error) {
	if userID == uuid.Nil {
		return WishlistPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	page, err := s.wishlistRepo.ListItems(ctx, userID, params)
	if err != nil {
		return WishlistPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	return page, nil
}

// GetWishlistIDs returns all liked product IDs for the user.
func (s *service) GetWishlistIDs(ctx context.Context, userID uuid.UUID) (WishlistIDsDTO, error) {
	if userID == uuid.Nil {
		return WishlistIDsDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	ids, err := s.wishlistRepo.ListItemIDs(ctx, userID)
	if err != nil {
		return WishlistIDsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist ids")
	}
	return ids, nil
}

// AddItem ensures the product exists and adds it to the wishlist.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return s.wishlistRepo.AddItem(ctx, userID, productID)
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.wishlistRepo.RemoveItem(ctx, userID, productID)
}
