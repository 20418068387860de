package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Transaction submission ──────────────────────────────────────────────────

// TransactionItemRequest is one line item of a transaction payload, priced at
// cart time so the server never re-prices a queued sale.
type TransactionItemRequest struct {
	ProductID   string          `json:"productId" validate:"required"`
	ProductCode string          `json:"productCode"`
	ProductName string          `json:"productName" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"required"`
	TaxRate     decimal.Decimal `json:"taxRate"`
}

// PaymentRequest is one tender entry (cash, card, …).
type PaymentRequest struct {
	PaymentMethod   string          `json:"paymentMethod" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	ReferenceNumber string          `json:"referenceNumber,omitempty"`
}

// TransactionRequest is the full payload sent to the remote transaction
// endpoint (directly, or later by the synchronizer). Totals are computed by
// the pricing engine and are authoritative.
type TransactionRequest struct {
	TenantID       string                   `json:"tenantId"`
	StoreID        string                   `json:"storeId" validate:"required"`
	Type           string                   `json:"type"` // SALE | REFUND
	Items          []TransactionItemRequest `json:"items" validate:"required,min=1,dive"`
	Payments       []PaymentRequest         `json:"payments" validate:"required,min=1,dive"`
	Subtotal       decimal.Decimal          `json:"subtotal"`
	TaxAmount      decimal.Decimal          `json:"taxAmount"`
	DiscountAmount decimal.Decimal          `json:"discountAmount"`
	GrandTotal     decimal.Decimal          `json:"grandTotal"`
	CashierID      string                   `json:"cashierId,omitempty"`
	CashierName    string                   `json:"cashierName,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
}

// TransactionResponse is the server-assigned transaction record, or, when the
// sale was captured offline, the synthesized local acknowledgment
// (Status=PENDING_SYNC, Offline=true, client order id standing in as the
// transaction number).
type TransactionResponse struct {
	ID                string              `json:"id"`
	TransactionNumber string              `json:"transactionNumber"`
	Status            string              `json:"status"`
	Offline           bool                `json:"offline,omitempty"`
	QueuedAt          *time.Time          `json:"queuedAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	Request           *TransactionRequest `json:"request,omitempty"` // payload echo for offline acks
}

// TransactionPage is a page of transaction history from the remote API.
type TransactionPage struct {
	Content       []TransactionResponse `json:"content"`
	Page          int                   `json:"page"`
	Size          int                   `json:"size"`
	TotalElements int64                 `json:"totalElements"`
}

// HistoryFilter is bound from the query string of GET /v1/transactions and
// forwarded to the remote API.
type HistoryFilter struct {
	Page      int    `form:"page,default=0" validate:"min=0"`
	Size      int    `form:"size,default=20" validate:"min=1,max=100"`
	Status    string `form:"status"`
	BranchID  string `form:"branchId"`
	StartDate string `form:"startDate"` // ISO date
	EndDate   string `form:"endDate"`
}

// CheckoutResponse pairs the committed (or queued) transaction with its
// rendered receipt.
type CheckoutResponse struct {
	Transaction *TransactionResponse `json:"transaction"`
	Receipt     *ReceiptResponse     `json:"receipt,omitempty"`
}

// ─── Receipts ────────────────────────────────────────────────────────────────

type ReceiptResponse struct {
	ReceiptNumber     string    `json:"receiptNumber"`
	TransactionNumber string    `json:"transactionNumber"`
	Content           string    `json:"content"`
	PDFPath           string    `json:"pdfPath,omitempty"`
	GeneratedAt       time.Time `json:"generatedAt"`
}
