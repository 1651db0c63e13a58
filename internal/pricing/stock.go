package pricing

import "storefront/internal/models"

type StockStatus struct {
	InStock  bool
	LowStock bool
}

// ComputeStockStatus derives availability. Untracked products are always in
// stock and never low.
func ComputeStockStatus(p models.Product) StockStatus {
	if !p.Inventory.TrackQuantity {
		return StockStatus{InStock: true}
	}
	return StockStatus{
		InStock:  p.Inventory.Quantity > 0,
		LowStock: p.Inventory.Quantity <= p.Inventory.LowStockThreshold,
	}
}

// HasStock reports whether qty units can be taken from p.
func HasStock(p models.Product, qty int) bool {
	return !p.Inventory.TrackQuantity || p.Inventory.Quantity >= qty
}

// Decorate fills the derived product fields before a product is returned.
func Decorate(p *models.Product) {
	status := ComputeStockStatus(*p)
	p.InStock = status.InStock
	p.IsLowStock = status.LowStock
	p.IsOnSale = IsOnSale(p.Price, p.CompareAtPrice)
}
