package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product line in the in-memory cart. Quantity is always ≥ 1;
// decrementing below 1 removes the line entirely.
type CartLine struct {
	ID             string          `json:"id"` // product id
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	BasePrice      decimal.Decimal `json:"basePrice"`
	Quantity       int             `json:"quantity"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	AvailableStock *int            `json:"availableStock,omitempty"`
}

// DiscountType distinguishes the two discount shapes. The zero value means no
// discount is active.
type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is the single cart-level discount. At most one is active at a time;
// applying a new one replaces the prior wholesale.
type Discount struct {
	Type       DiscountType    `json:"type"`
	Value      decimal.Decimal `json:"value"`
	Code       string          `json:"code,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	ApprovedBy string          `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time      `json:"approvedAt,omitempty"`
}

// Customer is the optional customer attached to the cart.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ApprovalRequest is the ephemeral escalation record produced when a discount
// exceeds policy limits. It is never persisted locally: it either becomes an
// applied Discount (with approval metadata) or is discarded.
type ApprovalRequest struct {
	Type           string          `json:"type"` // e.g. "DISCOUNT"
	DiscountType   DiscountType    `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Reason         string          `json:"reason"`
	CashierID      string          `json:"cashierId"`
	CashierName    string          `json:"cashierName"`
}

// CartSnapshot is the single persisted copy of the in-memory cart, so a
// terminal restart does not lose an in-progress sale. One row, fixed key.
type CartSnapshot struct {
	ID        int             `gorm:"primaryKey" json:"id"`
	Payload   json.RawMessage `gorm:"not null" json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (CartSnapshot) TableName() string { return "cart_snapshot" }
