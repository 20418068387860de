package dto

import (
	"github.com/shopspring/decimal"

	"github.com/rjnat/cursorpos/internal/model"
)

// ─── Cart requests ───────────────────────────────────────────────────────────

// AddItemRequest adds a product to the cart by id. The product is resolved
// from the local cache, so scanning works offline.
type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// UpdateQuantityRequest carries the new line quantity. Zero and negative
// values pass through to the cart, which ignores them, so all non-positive
// inputs take the same silent no-op path.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type ApplyDiscountRequest struct {
	Type  model.DiscountType `json:"type" validate:"required,oneof=percentage fixed"`
	Value decimal.Decimal    `json:"value" validate:"required"`
	Code  string             `json:"code"`
	// Set when the discount was escalated and granted by a manager.
	ApprovedBy string `json:"approvedBy"`
}

type SetCustomerRequest struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

// CheckoutRequest finalizes the current cart into a transaction submission.
type CheckoutRequest struct {
	Payments    []PaymentRequest `json:"payments" validate:"required,min=1,dive"`
	CashierID   string           `json:"cashierId"`
	CashierName string           `json:"cashierName"`
	Notes       string           `json:"notes"`
	EmailTo     string           `json:"emailTo" validate:"omitempty,email"` // email the receipt when set
}

// ─── Cart responses ──────────────────────────────────────────────────────────

// CartTotals is the pricing engine output for the current cart.
type CartTotals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	GrandTotal     decimal.Decimal `json:"grandTotal"`
	ItemCount      int             `json:"itemCount"`
}

type CartResponse struct {
	Items    []model.CartLine `json:"items"`
	Customer *model.Customer  `json:"customer,omitempty"`
	Discount model.Discount   `json:"discount"`
	Totals   CartTotals       `json:"totals"`
}

// DiscountCheckResponse tells the UI whether a discount needs escalation
// before it can be applied.
type DiscountCheckResponse struct {
	RequiresApproval bool                   `json:"requiresApproval"`
	Request          *model.ApprovalRequest `json:"request,omitempty"`
}
