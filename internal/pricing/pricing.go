package pricing

import "github.com/yogesh832/dumpsexpert-checkout/internal/cart"

type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	GrandTotal float64 `json:"grandTotal"`
}

// ComputeTotals is a pure function of the cart items and the applied
// discount. Items with a missing price count as 0 and a missing quantity
// counts as 1, matching how the storefront renders them.
func ComputeTotals(items []cart.CartItem, discount float64) Totals {
	var subtotal float64
	for _, item := range items {
		price := item.Price
		if price < 0 {
			price = 0
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		subtotal += price * float64(quantity)
	}

	if discount < 0 {
		discount = 0
	}

	grandTotal := subtotal - discount
	if grandTotal < 0 {
		grandTotal = 0
	}

	return Totals{
		Subtotal:   subtotal,
		Discount:   discount,
		GrandTotal: grandTotal,
	}
}
