package enums

// ProductStatus controls catalog visibility. Only active products are listed or sold.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

var productStatuses = []ProductStatus{ProductStatusActive, ProductStatusDraft, ProductStatusArchived}

func (s ProductStatus) String() string { return string(s) }

func (s ProductStatus) IsValid() bool { return known(s, productStatuses) }

// Sellable reports whether the product may appear in listings and checkouts.
func (s ProductStatus) Sellable() bool { return s == ProductStatusActive }

func ParseProductStatus(value string) (ProductStatus, error) {
	return parse("product status", value, productStatuses, false)
}
