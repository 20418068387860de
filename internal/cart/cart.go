// Package cart is the pricing engine: pure computation over an in-memory cart
// producing subtotal, tax, discount amount, and grand total. No I/O.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/rjnat/cursorpos/internal/model"
)

// Cart holds the in-progress sale. All mutators are plain value operations;
// callers that share a Cart across goroutines must serialize access (the cart
// service does).
type Cart struct {
	Items    []model.CartLine `json:"items"`
	Customer *model.Customer  `json:"customer,omitempty"`
	Discount model.Discount   `json:"discount"`
}

func New() *Cart {
	return &Cart{}
}

// AddItem increments quantity by 1 if a line with the same id exists;
// otherwise it appends a new line with quantity 1, copying the product fields.
func (c *Cart) AddItem(p model.CachedProduct) {
	for i := range c.Items {
		if c.Items[i].ID == p.ID {
			c.Items[i].Quantity++
			return
		}
	}
	c.Items = append(c.Items, model.CartLine{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		BasePrice:      p.BasePrice,
		Quantity:       1,
		TaxRate:        p.TaxRate,
		AvailableStock: p.AvailableStock,
	})
}

// RemoveItem deletes the matching line; no-op if absent.
func (c *Cart) RemoveItem(id string) {
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// UpdateQuantity sets a line's quantity. Applies only when quantity > 0 and
// the line exists; otherwise the cart is left unchanged. The silent no-op on
// invalid input is a deliberate policy decision, not an oversight.
func (c *Cart) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		return
	}
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the items, clears the customer, and resets the discount.
func (c *Cart) Clear() {
	c.Items = nil
	c.Customer = nil
	c.Discount = model.Discount{}
}

func (c *Cart) SetCustomer(customer *model.Customer) {
	c.Customer = customer
}

// ApplyDiscount replaces the active discount wholesale; discounts never stack.
func (c *Cart) ApplyDiscount(d model.Discount) {
	c.Discount = d
}

func (c *Cart) RemoveDiscount() {
	c.Discount = model.Discount{}
}

// ── Selectors ────────────────────────────────────────────────────────────────

// Subtotal is Σ(basePrice × quantity) over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.BasePrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Tax is Σ(basePrice × quantity × taxRate / 100), computed per line on the
// pre-discount total. The discount does not reduce the tax base.
func (c *Cart) Tax() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	for _, item := range c.Items {
		line := item.BasePrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line.Mul(item.TaxRate).Div(hundred))
	}
	return total
}

// DiscountAmount is the active discount clamped to the subtotal, so a
// discount can never exceed the pre-tax amount of the sale.
func (c *Cart) DiscountAmount() decimal.Decimal {
	subtotal := c.Subtotal()
	switch c.Discount.Type {
	case model.DiscountPercentage:
		amount := subtotal.Mul(c.Discount.Value).Div(decimal.NewFromInt(100))
		return decimal.Min(amount, subtotal)
	case model.DiscountFixed:
		return decimal.Min(c.Discount.Value, subtotal)
	default:
		return decimal.Zero
	}
}

// GrandTotal is subtotal + tax − discount. Not floored at zero: a fixed
// discount equal to the subtotal still leaves the tax owed, matching the
// original terminal's arithmetic.
func (c *Cart) GrandTotal() decimal.Decimal {
	return c.Subtotal().Add(c.Tax()).Sub(c.DiscountAmount())
}

// ItemCount is the total unit count across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
