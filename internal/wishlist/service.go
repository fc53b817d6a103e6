package wishlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/papelisco/storefront/internal/products"
	"github.com/papelisco/storefront/pkg/db"
	"github.com/papelisco/storefront/pkg/db/models"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
)

type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (*ItemDTO, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

type productLoader interface {
	FindActive(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	products productLoader
}

func NewService(repo *Repository, productsRepo productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo, products: productsRepo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlist")
	}
	out := make([]ItemDTO, 0, len(items))
	for i := range items {
		if items[i].Product == nil {
			continue
		}
		out = append(out, toDTO(&items[i], items[i].Product))
	}
	return out, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) (*ItemDTO, error) {
	product, err := s.products.FindActive(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	item, err := s.repo.Add(ctx, userID, productID)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already in wishlist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add to wishlist")
	}
	dto := toDTO(item, product)
	return &dto, nil
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	removed, err := s.repo.Remove(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove from wishlist")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in wishlist")
	}
	return nil
}

func toDTO(item *models.WishlistItem, product *models.Product) ItemDTO {
	return ItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		Product:   products.NewProductDTO(product),
		CreatedAt: item.CreatedAt,
	}
}
