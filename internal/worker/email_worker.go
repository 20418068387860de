package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rjnat/cursorpos/internal/infra"
)

// JobTypeEmailReceipt delivers a receipt to a customer mailbox.
const JobTypeEmailReceipt = "email_receipt"

// EmailReceiptPayload is the job payload for JobTypeEmailReceipt.
type EmailReceiptPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdfPath,omitempty"`
}

// NewEmailReceiptHandler returns the handler that sends receipt mail through
// the configured SMTP relay.
func NewEmailReceiptHandler(mailer *infra.Mailer) Handler {
	return func(_ context.Context, payload json.RawMessage) error {
		var job EmailReceiptPayload
		if err := json.Unmarshal(payload, &job); err != nil {
			return fmt.Errorf("decode email receipt job: %w", err)
		}
		return mailer.SendReceipt(job.To, job.Subject, job.Body, job.PDFPath)
	}
}
