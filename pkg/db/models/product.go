package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/papelisco/storefront/pkg/enums"
)

// Product is a catalog listing. Prices are stored in cents.
type Product struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID          uuid.UUID           `gorm:"column:category_id;type:uuid;not null;index:products_category_id_idx"`
	Category            *Category           `gorm:"foreignKey:CategoryID"`
	Name                string              `gorm:"column:name;not null"`
	Slug                string              `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	SKU                 string              `gorm:"column:sku;not null;uniqueIndex:products_sku_key"`
	Description         *string             `gorm:"column:description"`
	PriceCents          int64               `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int64              `gorm:"column:compare_at_price_cents"`
	StockQuantity       int                 `gorm:"column:stock_quantity;not null;default:0"`
	Status              enums.ProductStatus `gorm:"column:status;type:text;not null;default:'ACTIVE'"`
	IsFeatured          bool                `gorm:"column:is_featured;not null;default:false"`
	Images              []ProductImage      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductImage is an image attached to a product. At most one is primary.
type ProductImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:product_images_product_id_idx"`
	URL       string    `gorm:"column:url;not null"`
	AltText   *string   `gorm:"column:alt_text"`
	IsPrimary bool      `gorm:"column:is_primary;not null;default:false"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *ProductImage) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
