package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/model"
)

// APIClient talks to the remote POS services (transactions, products,
// approvals). Transport failures come back as *apierror.NetworkError and
// payload rejections as *apierror.ValidationError, so callers can tell
// "queue it" apart from "surface it".
type APIClient struct {
	baseURL    string
	token      string
	tenantID   string
	httpClient *http.Client
}

func NewAPIClient(baseURL, token, tenantID string) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		token:      token,
		tenantID:   tenantID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Ping checks remote reachability. Used by the connectivity monitor.
func (c *APIClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// SubmitTransaction posts a sale to the remote transaction endpoint. The
// client order id travels as an idempotency key so a retried submission never
// creates a duplicate transaction server-side.
func (c *APIClient) SubmitTransaction(ctx context.Context, clientOrderID string, payload json.RawMessage) (*dto.TransactionResponse, error) {
	var out dto.TransactionResponse
	headers := map[string]string{"Idempotency-Key": clientOrderID}
	if err := c.doWithHeaders(ctx, http.MethodPost, "/transactions", payload, &out, headers); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) GetTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	var out dto.TransactionResponse
	if err := c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) GetTransactionByNumber(ctx context.Context, number string) (*dto.TransactionResponse, error) {
	var out dto.TransactionResponse
	if err := c.do(ctx, http.MethodGet, "/transactions/number/"+url.PathEscape(number), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTransactions forwards the history filter to the remote API.
func (c *APIClient) ListTransactions(ctx context.Context, filter dto.HistoryFilter) (*dto.TransactionPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(filter.Page))
	q.Set("size", strconv.Itoa(filter.Size))
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.BranchID != "" {
		q.Set("branchId", filter.BranchID)
	}
	if filter.StartDate != "" {
		q.Set("startDate", filter.StartDate)
	}
	if filter.EndDate != "" {
		q.Set("endDate", filter.EndDate)
	}

	var out dto.TransactionPage
	if err := c.do(ctx, http.MethodGet, "/transactions?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) CancelTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	var out dto.TransactionResponse
	if err := c.do(ctx, http.MethodPut, "/transactions/"+url.PathEscape(id)+"/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProducts fetches one catalog page, used to serve the live grid and to
// refresh the offline cache.
func (c *APIClient) ListProducts(ctx context.Context, search string, page, size int) (*dto.ProductPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	if search != "" {
		q.Set("search", search)
	}

	var out dto.ProductPage
	if err := c.do(ctx, http.MethodGet, "/products?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateApproval files a manager-approval request for an oversized discount.
func (c *APIClient) CreateApproval(ctx context.Context, req model.ApprovalRequest) (*dto.ApprovalResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("pos api: marshal approval: %w", err)
	}
	var out dto.ApprovalResponse
	if err := c.do(ctx, http.MethodPost, "/approvals", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	return c.doWithHeaders(ctx, method, path, body, out, nil)
}

func (c *APIClient) doWithHeaders(ctx context.Context, method, path string, body []byte, out interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("pos api: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenantID != "" {
		req.Header.Set("X-Tenant-ID", c.tenantID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apierror.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("pos api: decode response: %w", err)
		}
		return nil
	}

	msg := readErrorMessage(resp.Body)
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict {
		return &apierror.ValidationError{Status: resp.StatusCode, Message: msg}
	}
	return fmt.Errorf("pos api: %s %s returned %d: %s", method, path, resp.StatusCode, msg)
}

// readErrorMessage extracts {"message": ...} or {"detail": ...} from an error
// body, falling back to the raw text.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var envelope struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Detail != "" {
			return envelope.Detail
		}
	}
	return string(raw)
}
