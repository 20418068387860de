package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/infra"
	"github.com/rjnat/cursorpos/internal/model"
	"github.com/rjnat/cursorpos/internal/repository"
	"github.com/rjnat/cursorpos/internal/sync"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = infra.CloseDatabase(db) })
	return db
}

// stubGateway scripts the remote transaction API.
type stubGateway struct {
	submitErr   error
	submitCalls int
	lastKey     string
}

func (g *stubGateway) SubmitTransaction(_ context.Context, clientOrderID string, _ json.RawMessage) (*dto.TransactionResponse, error) {
	g.submitCalls++
	g.lastKey = clientOrderID
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	return &dto.TransactionResponse{
		ID:                "srv-1",
		TransactionNumber: "TRX-0001",
		Status:            "COMPLETED",
		CreatedAt:         time.Now(),
	}, nil
}

func (g *stubGateway) GetTransaction(context.Context, string) (*dto.TransactionResponse, error) {
	return nil, errors.New("not scripted")
}
func (g *stubGateway) GetTransactionByNumber(context.Context, string) (*dto.TransactionResponse, error) {
	return nil, errors.New("not scripted")
}
func (g *stubGateway) ListTransactions(context.Context, dto.HistoryFilter) (*dto.TransactionPage, error) {
	return nil, errors.New("not scripted")
}
func (g *stubGateway) CancelTransaction(context.Context, string) (*dto.TransactionResponse, error) {
	return nil, errors.New("not scripted")
}

func salePayload() dto.TransactionRequest {
	return dto.TransactionRequest{
		StoreID: "s1",
		Type:    "SALE",
		Items: []dto.TransactionItemRequest{{
			ProductID:   "p1",
			ProductName: "Espresso",
			Quantity:    2,
			UnitPrice:   decimal.NewFromInt(1200),
			TaxRate:     decimal.NewFromInt(10),
		}},
		Payments:   []dto.PaymentRequest{{PaymentMethod: "CASH", Amount: decimal.NewFromInt(2640)}},
		Subtotal:   decimal.NewFromInt(2400),
		TaxAmount:  decimal.NewFromInt(240),
		GrandTotal: decimal.NewFromInt(2640),
	}
}

func newFacade(t *testing.T, gateway TransactionGateway, online bool) (TransactionService, repository.OrderQueueRepository) {
	t.Helper()
	queue := repository.NewOrderQueueRepository(testDB(t))
	monitor := sync.NewMonitor(nil, time.Minute)
	monitor.SetOnline(online)
	return NewTransactionService(gateway, queue, monitor, "t1", "s1"), queue
}

func TestSubmitOfflineQueuesAndSynthesizesAck(t *testing.T) {
	gateway := &stubGateway{}
	svc, queue := newFacade(t, gateway, false)

	resp, err := svc.Submit(context.Background(), salePayload())
	require.NoError(t, err)

	assert.Equal(t, 0, gateway.submitCalls, "no network attempt while offline")
	assert.Equal(t, "PENDING_SYNC", resp.Status)
	assert.True(t, resp.Offline)
	assert.True(t, strings.HasPrefix(resp.ID, "offline_"))
	assert.Equal(t, resp.ID, resp.TransactionNumber, "client order id stands in as the transaction number until sync")
	require.NotNil(t, resp.QueuedAt)
	require.NotNil(t, resp.Request, "ack echoes the payload for receipts")
	assert.True(t, resp.Request.GrandTotal.Equal(decimal.NewFromInt(2640)))

	pending, err := queue.GetQueuedOrders(context.Background(), model.OrderPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, resp.ID, pending[0].ClientOrderID)
}

func TestSubmitOnlineGoesDirect(t *testing.T) {
	gateway := &stubGateway{}
	svc, queue := newFacade(t, gateway, true)

	resp, err := svc.Submit(context.Background(), salePayload())
	require.NoError(t, err)

	assert.Equal(t, 1, gateway.submitCalls)
	assert.Equal(t, "TRX-0001", resp.TransactionNumber)
	assert.False(t, resp.Offline)
	assert.True(t, strings.HasPrefix(gateway.lastKey, "offline_"), "idempotency key assigned before the attempt")

	orders, err := queue.GetQueuedOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders, "direct submissions are never queued")
}

func TestSubmitNetworkFailureFallsBackToQueue(t *testing.T) {
	gateway := &stubGateway{submitErr: &apierror.NetworkError{Op: "submit", Err: errors.New("timeout")}}
	svc, queue := newFacade(t, gateway, true)

	resp, err := svc.Submit(context.Background(), salePayload())
	require.NoError(t, err)

	assert.Equal(t, 1, gateway.submitCalls)
	assert.Equal(t, "PENDING_SYNC", resp.Status)
	// The queued order reuses the key from the failed direct attempt.
	assert.Equal(t, gateway.lastKey, resp.ID)

	pending, err := queue.GetQueuedOrders(context.Background(), model.OrderPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSubmitValidationRejectionIsNotQueued(t *testing.T) {
	gateway := &stubGateway{submitErr: &apierror.ValidationError{Status: http.StatusUnprocessableEntity, Message: "grandTotal mismatch"}}
	svc, queue := newFacade(t, gateway, true)

	_, err := svc.Submit(context.Background(), salePayload())
	require.Error(t, err)
	assert.True(t, apierror.IsValidation(err))

	orders, err := queue.GetQueuedOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders, "backend rejections must not re-enter the queue")
}
