package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/model"
	"github.com/rjnat/cursorpos/internal/repository"
	"github.com/rjnat/cursorpos/internal/sync"
)

// TransactionGateway is the remote transaction API surface the facade
// depends on.
type TransactionGateway interface {
	SubmitTransaction(ctx context.Context, clientOrderID string, payload json.RawMessage) (*dto.TransactionResponse, error)
	GetTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error)
	GetTransactionByNumber(ctx context.Context, number string) (*dto.TransactionResponse, error)
	ListTransactions(ctx context.Context, filter dto.HistoryFilter) (*dto.TransactionPage, error)
	CancelTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error)
}

// TransactionService is the single entry point for completing a sale. The
// caller never chooses between online and offline paths; the service decides
// based on connectivity and the kind of failure it hits.
type TransactionService interface {
	// Submit sends the transaction to the backend when the terminal is
	// online, or queues it durably when offline or when the attempt fails
	// for network reasons. Rejections by the backend (validation, conflict)
	// are returned to the caller and never queued.
	Submit(ctx context.Context, payload dto.TransactionRequest) (*dto.TransactionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TransactionResponse, error)
	GetByNumber(ctx context.Context, number string) (*dto.TransactionResponse, error)
	List(ctx context.Context, filter dto.HistoryFilter) (*dto.TransactionPage, error)
	Cancel(ctx context.Context, id string) (*dto.TransactionResponse, error)
}

type transactionService struct {
	gateway  TransactionGateway
	queue    repository.OrderQueueRepository
	monitor  *sync.Monitor
	tenantID string
	storeID  string
}

func NewTransactionService(gateway TransactionGateway, queue repository.OrderQueueRepository, monitor *sync.Monitor, tenantID, storeID string) TransactionService {
	return &transactionService{
		gateway:  gateway,
		queue:    queue,
		monitor:  monitor,
		tenantID: tenantID,
		storeID:  storeID,
	}
}

func (s *transactionService) Submit(ctx context.Context, payload dto.TransactionRequest) (*dto.TransactionResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}

	// The idempotency key exists before any network attempt, so a retry of
	// this exact sale (direct or queued) dedupes server-side.
	clientOrderID := repository.NewClientOrderID()

	if s.monitor.IsOnline() {
		resp, err := s.gateway.SubmitTransaction(ctx, clientOrderID, raw)
		if err == nil {
			return resp, nil
		}
		if !apierror.IsNetwork(err) {
			// The backend saw the request and rejected it; queueing would
			// just replay the same rejection.
			return nil, err
		}
		log.Warn().Err(err).Str("client_order_id", clientOrderID).
			Msg("transaction: direct submit failed, falling back to queue")
	}

	return s.enqueue(ctx, clientOrderID, raw, &payload)
}

func (s *transactionService) enqueue(ctx context.Context, clientOrderID string, raw json.RawMessage, payload *dto.TransactionRequest) (*dto.TransactionResponse, error) {
	order := &model.QueuedOrder{
		ClientOrderID: clientOrderID,
		TenantID:      s.tenantID,
		StoreID:       s.storeID,
		OrderData:     raw,
	}
	queued, err := s.queue.QueueOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("queue transaction: %w", err)
	}

	log.Info().Str("client_order_id", clientOrderID).Msg("transaction: queued for sync")

	// Synthesized acknowledgement: the sale is complete from the terminal's
	// point of view, with the queued payload echoed back for receipts.
	now := time.Now()
	return &dto.TransactionResponse{
		ID:                clientOrderID,
		TransactionNumber: clientOrderID,
		Status:            "PENDING_SYNC",
		Offline:           true,
		QueuedAt:          &now,
		CreatedAt:         queued.CreatedAt,
		Request:           payload,
	}, nil
}

func (s *transactionService) GetByID(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	return s.gateway.GetTransaction(ctx, id)
}

func (s *transactionService) GetByNumber(ctx context.Context, number string) (*dto.TransactionResponse, error) {
	return s.gateway.GetTransactionByNumber(ctx, number)
}

func (s *transactionService) List(ctx context.Context, filter dto.HistoryFilter) (*dto.TransactionPage, error) {
	return s.gateway.ListTransactions(ctx, filter)
}

func (s *transactionService) Cancel(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	return s.gateway.CancelTransaction(ctx, id)
}
