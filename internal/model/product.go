package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedProduct is an offline snapshot of a sellable item, refreshed in bulk
// whenever a product fetch succeeds. The rest of the system treats it as a
// read-only copy; only the cache repository writes it.
type CachedProduct struct {
	ID             string          `gorm:"primaryKey" json:"id"`
	TenantID       string          `gorm:"index;not null" json:"tenantId"`
	SKU            string          `gorm:"index" json:"sku"`
	Name           string          `gorm:"index;not null" json:"name"`
	Category       string          `json:"category"`
	BasePrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"basePrice"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"taxRate"` // percent, 0–100
	AvailableStock *int            `json:"availableStock,omitempty"`
	CachedAt       time.Time       `gorm:"index" json:"cachedAt"`
}

func (CachedProduct) TableName() string { return "products_cache" }
