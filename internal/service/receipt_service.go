package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/infra"
	"github.com/rjnat/cursorpos/internal/worker"
)

// ReceiptService renders a receipt for a completed (or queued) transaction
// and optionally mails it to the customer through the worker pool.
type ReceiptService interface {
	Generate(ctx context.Context, txn *dto.TransactionResponse) (*dto.ReceiptResponse, error)
	// Email queues a receipt mail job; delivery happens asynchronously.
	Email(ctx context.Context, to string, receipt *dto.ReceiptResponse) error
	// PDFFile resolves a previously rendered receipt number to its PDF path.
	PDFFile(receiptNumber string) (string, error)
}

type receiptService struct {
	dispatcher   *worker.Dispatcher
	businessName string
	pdfPath      string
}

func NewReceiptService(dispatcher *worker.Dispatcher, businessName, pdfPath string) ReceiptService {
	return &receiptService{dispatcher: dispatcher, businessName: businessName, pdfPath: pdfPath}
}

// newReceiptNumber builds RCP-YYYYMMDD-HHMMSS-XXXXXXXX, where the suffix is
// the first 8 characters of a random UUID.
func newReceiptNumber(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("RCP-%s-%s-%s", at.Format("20060102"), at.Format("150405"), strings.ToUpper(suffix))
}

func (s *receiptService) Generate(_ context.Context, txn *dto.TransactionResponse) (*dto.ReceiptResponse, error) {
	if txn == nil || txn.Request == nil {
		return nil, fmt.Errorf("transaction has no payload to render")
	}

	now := time.Now()
	number := newReceiptNumber(now)
	req := *txn.Request

	transactionNumber := txn.TransactionNumber
	if transactionNumber == "" {
		// Queued sales have no server-issued number yet; the client order id
		// identifies the receipt until sync completes.
		transactionNumber = txn.ID
	}

	var pdfPath string
	if s.pdfPath != "" {
		path, err := infra.GenerateReceiptPDF(s.businessName, number, transactionNumber, req, now, s.pdfPath)
		if err != nil {
			return nil, fmt.Errorf("render receipt pdf: %w", err)
		}
		pdfPath = path
	}

	return &dto.ReceiptResponse{
		ReceiptNumber:     number,
		TransactionNumber: transactionNumber,
		Content:           buildReceiptText(s.businessName, number, transactionNumber, req, now),
		PDFPath:           pdfPath,
		GeneratedAt:       now,
	}, nil
}

var receiptNumberRe = regexp.MustCompile(`^RCP-\d{8}-\d{6}-[0-9A-F]{8}$`)

func (s *receiptService) PDFFile(receiptNumber string) (string, error) {
	if !receiptNumberRe.MatchString(receiptNumber) {
		return "", fmt.Errorf("invalid receipt number %q", receiptNumber)
	}
	if s.pdfPath == "" {
		return "", fmt.Errorf("pdf storage is not configured")
	}
	path := filepath.Join(s.pdfPath, fmt.Sprintf("receipt_%s.pdf", receiptNumber))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("receipt %s: %w", receiptNumber, err)
	}
	return path, nil
}

func (s *receiptService) Email(_ context.Context, to string, receipt *dto.ReceiptResponse) error {
	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}
	err := s.dispatcher.Enqueue(worker.JobTypeEmailReceipt, worker.EmailReceiptPayload{
		To:      to,
		Subject: fmt.Sprintf("%s receipt %s", s.businessName, receipt.ReceiptNumber),
		Body:    receipt.Content,
		PDFPath: receipt.PDFPath,
	})
	if err != nil {
		return err
	}
	log.Info().Str("to", to).Str("receipt", receipt.ReceiptNumber).Msg("receipt: email queued")
	return nil
}

func buildReceiptText(businessName, receiptNumber, transactionNumber string, req dto.TransactionRequest, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", businessName)
	fmt.Fprintf(&b, "Receipt: %s\n", receiptNumber)
	fmt.Fprintf(&b, "Transaction: %s\n", transactionNumber)
	fmt.Fprintf(&b, "Date: %s\n", at.Format("2006-01-02 15:04:05"))
	if req.CashierName != "" {
		fmt.Fprintf(&b, "Cashier: %s\n", req.CashierName)
	}
	b.WriteString(strings.Repeat("-", 32) + "\n")
	for _, item := range req.Items {
		fmt.Fprintf(&b, "%s\n  %d x %s = %s\n",
			item.ProductName, item.Quantity,
			item.UnitPrice.StringFixed(2),
			item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).StringFixed(2))
	}
	b.WriteString(strings.Repeat("-", 32) + "\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", req.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Tax: %s\n", req.TaxAmount.StringFixed(2))
	if !req.DiscountAmount.IsZero() {
		fmt.Fprintf(&b, "Discount: -%s\n", req.DiscountAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", req.GrandTotal.StringFixed(2))
	for _, payment := range req.Payments {
		fmt.Fprintf(&b, "Paid (%s): %s\n", payment.PaymentMethod, payment.Amount.StringFixed(2))
	}
	b.WriteString("\nThank you for your purchase\n")
	return b.String()
}
