package infra

// pdf.go — receipt PDF generation using go-pdf/fpdf.
// Generates thermal-receipt-style documents with:
//   - Business name header
//   - Receipt and transaction numbers with timestamp
//   - Item table (product name, quantity, line total)
//   - Discount line (if applicable)
//   - Bold grand total
//   - Payment method breakdown
//
// The output file is saved to storagePath/receipt_{number}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/rjnat/cursorpos/internal/dto"
)

// GenerateReceiptPDF renders a receipt for a finalized sale. storagePath is
// created if needed. Returns the absolute path to the generated file.
func GenerateReceiptPDF(businessName, receiptNumber, transactionNumber string, req dto.TransactionRequest, createdAt time.Time, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("receipt_%s.pdf", receiptNumber)
	filePath := filepath.Join(storagePath, fileName)

	// 74mm × 105mm — close to thermal receipt paper
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8 // total margins = 8mm

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, businessName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Sales Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// ── Receipt info ─────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, receiptNumber, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, fmt.Sprintf("Txn %s", transactionNumber), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, createdAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.52 // product name
	col2 := contentW * 0.16 // qty
	col3 := contentW * 0.32 // line total

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 4, "Item", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 4, "Qty", "", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 4, "Total", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range req.Items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		name := item.ProductName
		if len(name) > 24 {
			name = name[:24]
		}
		pdf.CellFormat(col1, 4, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 4, fmt.Sprintf("%d", item.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 4, lineTotal.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(1)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW*0.6, 4, "Subtotal", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.4, 4, req.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW*0.6, 4, "Tax", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.4, 4, req.TaxAmount.StringFixed(2), "", 1, "R", false, 0, "")
	if req.DiscountAmount.IsPositive() {
		pdf.CellFormat(contentW*0.6, 4, "Discount", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 4, "-"+req.DiscountAmount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW*0.6, 6, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.4, 6, req.GrandTotal.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.Ln(1)

	// ── Payments ─────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	for _, p := range req.Payments {
		pdf.CellFormat(contentW*0.6, 4, p.PaymentMethod, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 4, p.Amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
