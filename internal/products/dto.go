package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	"github.com/papelisco/storefront/pkg/pricing"
)

// CategoryDTO is the category summary embedded in product responses.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ImageDTO describes one product image.
type ImageDTO struct {
	URL       string  `json:"url"`
	AltText   *string `json:"altText,omitempty"`
	IsPrimary bool    `json:"isPrimary"`
}

// ProductDTO is the catalog shape returned to shoppers. Money renders as 2dp strings.
type ProductDTO struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	Slug           string              `json:"slug"`
	SKU            string              `json:"sku"`
	Description    *string             `json:"description,omitempty"`
	Price          pricing.Cents       `json:"price"`
	CompareAtPrice *pricing.Cents      `json:"comparePrice,omitempty"`
	StockQuantity  int                 `json:"stockQuantity"`
	Status         enums.ProductStatus `json:"status"`
	IsFeatured     bool                `json:"isFeatured"`
	Category       *CategoryDTO        `json:"category,omitempty"`
	Images         []ImageDTO          `json:"images"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// ListResult is one page of the catalog.
type ListResult struct {
	Products []ProductDTO `json:"products"`
	Total    int64        `json:"total"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
}

func NewProductDTO(p *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		SKU:           p.SKU,
		Description:   p.Description,
		Price:         pricing.Cents(p.PriceCents),
		StockQuantity: p.StockQuantity,
		Status:        p.Status,
		IsFeatured:    p.IsFeatured,
		Images:        make([]ImageDTO, 0, len(p.Images)),
		CreatedAt:     p.CreatedAt,
	}
	if p.CompareAtPriceCents != nil {
		compare := pricing.Cents(*p.CompareAtPriceCents)
		dto.CompareAtPrice = &compare
	}
	if p.Category != nil {
		dto.Category = &CategoryDTO{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	for _, img := range p.Images {
		dto.Images = append(dto.Images, ImageDTO{URL: img.URL, AltText: img.AltText, IsPrimary: img.IsPrimary})
	}
	return dto
}

func newProductDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewProductDTO(&rows[i]))
	}
	return out
}
