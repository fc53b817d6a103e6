package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/papelisco/storefront/pkg/db"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
	"github.com/papelisco/storefront/pkg/pagination"
)

const (
	DefaultRelatedLimit = 4
	maxRelatedLimit     = 20
)

// Service is the read-only catalog surface used by the controllers.
type Service interface {
	List(ctx context.Context, q ListQuery) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Related(ctx context.Context, id uuid.UUID, limit int) ([]ProductDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	q.Limit = pagination.NormalizeLimit(q.Limit)
	if q.Offset < 0 {
		q.Offset = 0
	}
	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return &ListResult{
		Products: newProductDTOs(rows),
		Total:    total,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindActive(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) Related(ctx context.Context, id uuid.UUID, limit int) ([]ProductDTO, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	if limit > maxRelatedLimit {
		limit = maxRelatedLimit
	}
	// The source may be inactive; only the suggestions are restricted to the active catalog.
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	rows, err := s.repo.Related(ctx, product, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "related products")
	}
	return newProductDTOs(rows), nil
}
