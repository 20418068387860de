package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rjnat/cursorpos/internal/model"
)

// Policy holds the discount ceilings above which a manager must sign off.
// The engine itself never gates: it computes amounts and applies whatever
// discount it is given. The gate lives here, consumed uniformly by every
// caller.
type Policy struct {
	// MaxPercent is the largest percentage discount a cashier may apply
	// unassisted (e.g. 20).
	MaxPercent decimal.Decimal
	// MaxFraction is the largest fixed discount, as a fraction of subtotal,
	// a cashier may apply unassisted (e.g. 0.2).
	MaxFraction decimal.Decimal
}

// DefaultPolicy mirrors the shipped terminal limits: 20% or 20% of subtotal.
func DefaultPolicy() Policy {
	return Policy{
		MaxPercent:  decimal.NewFromInt(20),
		MaxFraction: decimal.NewFromFloat(0.2),
	}
}

var (
	ErrDiscountInvalid = errors.New("discount value out of range")
)

// Validate rejects nonsensical discount values before any policy check:
// percentages outside (0, 100], non-positive fixed amounts.
func (p Policy) Validate(dt model.DiscountType, value decimal.Decimal) error {
	switch dt {
	case model.DiscountPercentage:
		if !value.IsPositive() || value.GreaterThan(decimal.NewFromInt(100)) {
			return ErrDiscountInvalid
		}
	case model.DiscountFixed:
		if !value.IsPositive() {
			return ErrDiscountInvalid
		}
	default:
		return ErrDiscountInvalid
	}
	return nil
}

// RequiresApproval reports whether a discount exceeds the cashier's ceiling
// and must be routed through the manager-approval workflow before it is
// applied.
func (p Policy) RequiresApproval(dt model.DiscountType, value, subtotal decimal.Decimal) bool {
	switch dt {
	case model.DiscountPercentage:
		return value.GreaterThan(p.MaxPercent)
	case model.DiscountFixed:
		return value.GreaterThan(subtotal.Mul(p.MaxFraction))
	default:
		return false
	}
}

// Amount computes the clamped discount amount for a prospective discount
// without mutating any cart.
func Amount(dt model.DiscountType, value, subtotal decimal.Decimal) decimal.Decimal {
	switch dt {
	case model.DiscountPercentage:
		return decimal.Min(subtotal.Mul(value).Div(decimal.NewFromInt(100)), subtotal)
	case model.DiscountFixed:
		return decimal.Min(value, subtotal)
	default:
		return decimal.Zero
	}
}

// NewApprovalRequest builds the ephemeral escalation record handed to the
// manager-approval flow.
func NewApprovalRequest(dt model.DiscountType, value, subtotal decimal.Decimal, reason, cashierID, cashierName string) model.ApprovalRequest {
	return model.ApprovalRequest{
		Type:           "DISCOUNT",
		DiscountType:   dt,
		DiscountValue:  value,
		DiscountAmount: Amount(dt, value, subtotal),
		Reason:         reason,
		CashierID:      cashierID,
		CashierName:    cashierName,
	}
}
