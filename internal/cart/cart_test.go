package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjnat/cursorpos/internal/model"
)

func product(id string, price float64, taxRate float64) model.CachedProduct {
	return model.CachedProduct{
		ID:        id,
		SKU:       "SKU-" + id,
		Name:      "Product " + id,
		BasePrice: decimal.NewFromFloat(price),
		TaxRate:   decimal.NewFromFloat(taxRate),
	}
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	c := New()
	p := product("p1", 100, 10)

	c.AddItem(p)
	c.AddItem(p)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 2, c.ItemCount())
}

func TestAddItemAppendsNewLine(t *testing.T) {
	c := New()
	c.AddItem(product("p1", 100, 10))
	c.AddItem(product("p2", 50, 10))

	require.Len(t, c.Items, 2)
	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.Equal(t, 1, c.Items[1].Quantity)
}

func TestUpdateQuantityInvalidInputIsNoOp(t *testing.T) {
	c := New()
	c.AddItem(product("p1", 100, 10))

	c.UpdateQuantity("p1", 0)
	assert.Equal(t, 1, c.Items[0].Quantity)

	c.UpdateQuantity("p1", -3)
	assert.Equal(t, 1, c.Items[0].Quantity)

	// Absent line leaves the cart unchanged too.
	c.UpdateQuantity("ghost", 5)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestRemoveItemAbsentIsNoOp(t *testing.T) {
	c := New()
	c.AddItem(product("p1", 100, 10))
	c.RemoveItem("ghost")
	require.Len(t, c.Items, 1)
	c.RemoveItem("p1")
	assert.Empty(t, c.Items)
}

// Two units at 25000 with 10% tax plus a 10% discount: subtotal 50000,
// tax 5000, discount 5000, grand total 50000.
func TestTotalsPercentageDiscount(t *testing.T) {
	c := New()
	p := product("p1", 25000, 10)
	c.AddItem(p)
	c.AddItem(p)
	c.ApplyDiscount(model.Discount{Type: model.DiscountPercentage, Value: decimal.NewFromInt(10)})

	assert.True(t, c.Subtotal().Equal(decimal.NewFromInt(50000)), "subtotal = %s", c.Subtotal())
	assert.True(t, c.Tax().Equal(decimal.NewFromInt(5000)), "tax = %s", c.Tax())
	assert.True(t, c.DiscountAmount().Equal(decimal.NewFromInt(5000)), "discount = %s", c.DiscountAmount())
	assert.True(t, c.GrandTotal().Equal(decimal.NewFromInt(50000)), "grand total = %s", c.GrandTotal())
}

// Mixed cart without discount: 100×2 + 50×1 at 10% tax = 250 + 25 = 275.
func TestTotalsMixedCartNoDiscount(t *testing.T) {
	c := New()
	p1 := product("p1", 100, 10)
	c.AddItem(p1)
	c.AddItem(p1)
	c.AddItem(product("p2", 50, 10))

	assert.True(t, c.Subtotal().Equal(decimal.NewFromInt(250)))
	assert.True(t, c.Tax().Equal(decimal.NewFromInt(25)))
	assert.True(t, c.DiscountAmount().IsZero())
	assert.True(t, c.GrandTotal().Equal(decimal.NewFromInt(275)))
}

func TestFixedDiscountClampedToSubtotal(t *testing.T) {
	c := New()
	c.AddItem(product("p1", 100, 10))
	c.ApplyDiscount(model.Discount{Type: model.DiscountFixed, Value: decimal.NewFromInt(500)})

	assert.True(t, c.DiscountAmount().Equal(decimal.NewFromInt(100)))
	// Tax is still owed on the pre-discount base.
	assert.True(t, c.GrandTotal().Equal(decimal.NewFromInt(10)))
}

func TestTaxBaseIgnoresDiscount(t *testing.T) {
	c := New()
	c.AddItem(product("p1", 1000, 21))
	c.ApplyDiscount(model.Discount{Type: model.DiscountPercentage, Value: decimal.NewFromInt(50)})

	assert.True(t, c.Tax().Equal(decimal.NewFromInt(210)))
	assert.True(t, c.DiscountAmount().Equal(decimal.NewFromInt(500)))
	assert.True(t, c.GrandTotal().Equal(decimal.NewFromInt(710)))
}

func TestApplyDiscountReplacesPrevious(t *testing.T) {
	c := New()
	c.AddItem(product("p1", 200, 0))
	c.ApplyDiscount(model.Discount{Type: model.DiscountPercentage, Value: decimal.NewFromInt(10)})
	c.ApplyDiscount(model.Discount{Type: model.DiscountFixed, Value: decimal.NewFromInt(30)})

	assert.Equal(t, model.DiscountFixed, c.Discount.Type)
	assert.True(t, c.DiscountAmount().Equal(decimal.NewFromInt(30)))
}

func TestClearResetsEverything(t *testing.T) {
	c := New()
	c.AddItem(product("p1", 100, 10))
	c.SetCustomer(&model.Customer{ID: "c1", Name: "Ada"})
	c.ApplyDiscount(model.Discount{Type: model.DiscountPercentage, Value: decimal.NewFromInt(5)})

	c.Clear()

	assert.Empty(t, c.Items)
	assert.Nil(t, c.Customer)
	assert.Equal(t, model.DiscountNone, c.Discount.Type)
	assert.True(t, c.GrandTotal().IsZero())
}

func TestEmptyCartTotalsAreZero(t *testing.T) {
	c := New()
	assert.True(t, c.Subtotal().IsZero())
	assert.True(t, c.Tax().IsZero())
	assert.True(t, c.GrandTotal().IsZero())
	assert.Equal(t, 0, c.ItemCount())
}
