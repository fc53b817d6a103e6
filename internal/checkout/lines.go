package checkout

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/papelisco/storefront/pkg/db/models"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
	"github.com/papelisco/storefront/pkg/pricing"
)

type requestedLine struct {
	ProductID uuid.UUID
	Quantity  int
}

type pricedLine struct {
	Product  models.Product
	Quantity int
}

func (l pricedLine) lineItem() pricing.LineItem {
	return pricing.LineItem{UnitPrice: pricing.Cents(l.Product.PriceCents), Quantity: l.Quantity}
}

// mergeLines parses ids and folds repeated products into one line, keeping first-seen order.
func mergeLines(items []ItemRequest) ([]requestedLine, error) {
	if len(items) == 0 {
		return nil, pkgerrors.Fields("invalid checkout", map[string]string{"items": "at least one item is required"})
	}
	index := map[uuid.UUID]int{}
	lines := make([]requestedLine, 0, len(items))
	for i, item := range items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, pkgerrors.Fields("invalid checkout", map[string]string{
				fmt.Sprintf("items[%d].productId", i): "must be a valid id",
			})
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.Fields("invalid checkout", map[string]string{
				fmt.Sprintf("items[%d].quantity", i): "must be at least 1",
			})
		}
		if pos, ok := index[id]; ok {
			lines[pos].Quantity += item.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, requestedLine{ProductID: id, Quantity: item.Quantity})
	}
	return lines, nil
}

// priceLines matches requested lines to catalog rows. Missing or inactive products and
// quantities above stock are state conflicts.
func priceLines(requested []requestedLine, catalog []models.Product) ([]pricedLine, error) {
	byID := make(map[uuid.UUID]models.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	unavailable := map[string]string{}
	priced := make([]pricedLine, 0, len(requested))
	for _, line := range requested {
		product, ok := byID[line.ProductID]
		switch {
		case !ok || !product.Status.Sellable():
			unavailable[line.ProductID.String()] = "product is not available"
		case line.Quantity > product.StockQuantity:
			unavailable[line.ProductID.String()] = fmt.Sprintf("only %d in stock", product.StockQuantity)
		default:
			priced = append(priced, pricedLine{Product: product, Quantity: line.Quantity})
		}
	}
	if len(unavailable) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "some items cannot be ordered").WithDetails(unavailable)
	}
	return priced, nil
}

func lineItems(lines []pricedLine) []pricing.LineItem {
	out := make([]pricing.LineItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.lineItem())
	}
	return out
}
