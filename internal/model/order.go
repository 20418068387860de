package model

import (
	"encoding/json"
	"time"
)

// OrderStatus is the sync lifecycle state of a queued order.
type OrderStatus string

const (
	OrderPending OrderStatus = "PENDING"
	OrderSyncing OrderStatus = "SYNCING"
	OrderSynced  OrderStatus = "SYNCED"
	OrderFailed  OrderStatus = "FAILED"
)

// QueuedOrder is a sale recorded locally, awaiting confirmation by the remote
// transaction endpoint. ClientOrderID is assigned at creation, before any
// network attempt, and doubles as the idempotency token the server uses to
// reject duplicates on retry.
type QueuedOrder struct {
	ClientOrderID string          `gorm:"primaryKey" json:"clientOrderId"`
	TenantID      string          `gorm:"index" json:"tenantId"`
	StoreID       string          `gorm:"index" json:"storeId"`
	OrderData     json.RawMessage `gorm:"not null" json:"orderData"`
	Status        OrderStatus     `gorm:"index;not null" json:"status"`
	CreatedAt     time.Time       `gorm:"index" json:"createdAt"`
	SyncAttempts  int             `gorm:"not null;default:0" json:"syncAttempts"`
	LastAttemptAt *time.Time      `json:"lastAttemptAt,omitempty"`
	ErrorMessage  *string         `json:"errorMessage,omitempty"`
	// DeadLettered is set when the order exhausted its sync attempts and was
	// copied to the dead-letter table, so it is parked exactly once.
	DeadLettered bool `gorm:"not null;default:false" json:"deadLettered"`
}

func (QueuedOrder) TableName() string { return "orders_queue" }

// QueueStats is the per-status breakdown of the order queue.
type QueueStats struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
	Syncing int64 `json:"syncing"`
	Synced  int64 `json:"synced"`
	Failed  int64 `json:"failed"`
}

// DeadLetter is a job or order that exhausted its retries and was parked for
// manual inspection.
type DeadLetter struct {
	ID       string          `gorm:"primaryKey" json:"id"`
	Source   string          `gorm:"index" json:"source"`
	JobType  string          `json:"jobType"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failedAt"`
}

func (DeadLetter) TableName() string { return "dead_letters" }
