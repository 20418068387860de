package service

import (
	"context"
	"encoding/json"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/cart"
	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/model"
	"github.com/rjnat/cursorpos/internal/repository"
)

// CartService owns the terminal's single in-memory cart, backed by the
// persisted snapshot so a restart does not lose an in-progress sale.
type CartService interface {
	View(ctx context.Context) *dto.CartResponse
	// AddItem resolves the product from the offline cache and adds one unit.
	// Fails with ErrStockLimit when the cached available stock would be
	// exceeded.
	AddItem(ctx context.Context, productID string) (*dto.CartResponse, error)
	RemoveItem(ctx context.Context, productID string) *dto.CartResponse
	// UpdateQuantity applies only when quantity > 0 and the line exists;
	// invalid input leaves the cart unchanged and returns the current view.
	UpdateQuantity(ctx context.Context, productID string, quantity int) (*dto.CartResponse, error)
	// DecrementItem lowers quantity by 1, removing the line when it would
	// drop below 1.
	DecrementItem(ctx context.Context, productID string) *dto.CartResponse
	Clear(ctx context.Context) *dto.CartResponse
	SetCustomer(ctx context.Context, customer model.Customer) *dto.CartResponse
	// CheckDiscount reports whether the discount needs manager approval,
	// without applying it.
	CheckDiscount(ctx context.Context, req dto.ApplyDiscountRequest, cashierID, cashierName string) (*dto.DiscountCheckResponse, error)
	// ApplyDiscount applies the discount, or returns the escalation record
	// when policy requires approval and none was provided.
	ApplyDiscount(ctx context.Context, req dto.ApplyDiscountRequest) (*dto.CartResponse, *model.ApprovalRequest, error)
	RemoveDiscount(ctx context.Context) *dto.CartResponse
	// BuildTransaction snapshots the cart into a submission payload with
	// engine-computed totals.
	BuildTransaction(ctx context.Context, req dto.CheckoutRequest) (*dto.TransactionRequest, error)
}

type cartService struct {
	mu       stdsync.Mutex
	cart     *cart.Cart
	policy   cart.Policy
	products repository.ProductCacheRepository
	snapshot repository.CartSnapshotRepository
	tenantID string
	storeID  string
}

func NewCartService(products repository.ProductCacheRepository, snapshot repository.CartSnapshotRepository, policy cart.Policy, tenantID, storeID string) CartService {
	s := &cartService{
		cart:     cart.New(),
		policy:   policy,
		products: products,
		snapshot: snapshot,
		tenantID: tenantID,
		storeID:  storeID,
	}
	s.restore()
	return s
}

// restore loads the persisted snapshot, if any. A corrupt snapshot is
// discarded rather than blocking startup.
func (s *cartService) restore() {
	payload, err := s.snapshot.Load(context.Background())
	if err != nil || payload == nil {
		if err != nil {
			log.Error().Err(err).Msg("cart: load snapshot")
		}
		return
	}
	var restored cart.Cart
	if err := json.Unmarshal(payload, &restored); err != nil {
		log.Warn().Err(err).Msg("cart: discarding corrupt snapshot")
		return
	}
	s.cart = &restored
}

// persist writes the snapshot after a mutation. Snapshot failure must not
// block the sale; it is logged and the in-memory cart stays authoritative.
func (s *cartService) persist(ctx context.Context) {
	payload, err := json.Marshal(s.cart)
	if err != nil {
		log.Error().Err(err).Msg("cart: marshal snapshot")
		return
	}
	if err := s.snapshot.Save(ctx, payload); err != nil {
		log.Error().Err(err).Msg("cart: save snapshot")
	}
}

func (s *cartService) view() *dto.CartResponse {
	return &dto.CartResponse{
		Items:    s.cart.Items,
		Customer: s.cart.Customer,
		Discount: s.cart.Discount,
		Totals: dto.CartTotals{
			Subtotal:       s.cart.Subtotal(),
			Tax:            s.cart.Tax(),
			DiscountAmount: s.cart.DiscountAmount(),
			GrandTotal:     s.cart.GrandTotal(),
			ItemCount:      s.cart.ItemCount(),
		},
	}
}

func (s *cartService) View(_ context.Context) *dto.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *cartService) AddItem(ctx context.Context, productID string) (*dto.CartResponse, error) {
	product, err := s.products.FindCachedProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %s not in cache: %w", productID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.AvailableStock != nil {
		current := 0
		for _, line := range s.cart.Items {
			if line.ID == productID {
				current = line.Quantity
			}
		}
		if current+1 > *product.AvailableStock {
			return nil, apierror.ErrStockLimit
		}
	}

	s.cart.AddItem(*product)
	s.persist(ctx)
	return s.view(), nil
}

func (s *cartService) RemoveItem(ctx context.Context, productID string) *dto.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveItem(productID)
	s.persist(ctx)
	return s.view()
}

func (s *cartService) UpdateQuantity(ctx context.Context, productID string, quantity int) (*dto.CartResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity > 0 {
		for _, line := range s.cart.Items {
			if line.ID == productID && line.AvailableStock != nil && quantity > *line.AvailableStock {
				return nil, apierror.ErrStockLimit
			}
		}
	}

	s.cart.UpdateQuantity(productID, quantity)
	s.persist(ctx)
	return s.view(), nil
}

func (s *cartService) DecrementItem(ctx context.Context, productID string) *dto.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.cart.Items {
		if line.ID == productID {
			if line.Quantity <= 1 {
				s.cart.RemoveItem(productID)
			} else {
				s.cart.UpdateQuantity(productID, line.Quantity-1)
			}
			break
		}
	}
	s.persist(ctx)
	return s.view()
}

func (s *cartService) Clear(ctx context.Context) *dto.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	if err := s.snapshot.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("cart: clear snapshot")
	}
	return s.view()
}

func (s *cartService) SetCustomer(ctx context.Context, customer model.Customer) *dto.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetCustomer(&customer)
	s.persist(ctx)
	return s.view()
}

func (s *cartService) CheckDiscount(_ context.Context, req dto.ApplyDiscountRequest, cashierID, cashierName string) (*dto.DiscountCheckResponse, error) {
	if err := s.policy.Validate(req.Type, req.Value); err != nil {
		return nil, err
	}

	s.mu.Lock()
	subtotal := s.cart.Subtotal()
	s.mu.Unlock()

	if !s.policy.RequiresApproval(req.Type, req.Value, subtotal) {
		return &dto.DiscountCheckResponse{RequiresApproval: false}, nil
	}
	approval := cart.NewApprovalRequest(req.Type, req.Value, subtotal, "discount above cashier limit", cashierID, cashierName)
	return &dto.DiscountCheckResponse{RequiresApproval: true, Request: &approval}, nil
}

func (s *cartService) ApplyDiscount(ctx context.Context, req dto.ApplyDiscountRequest) (*dto.CartResponse, *model.ApprovalRequest, error) {
	if err := s.policy.Validate(req.Type, req.Value); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subtotal := s.cart.Subtotal()
	if s.policy.RequiresApproval(req.Type, req.Value, subtotal) && req.ApprovedBy == "" {
		approval := cart.NewApprovalRequest(req.Type, req.Value, subtotal, "discount above cashier limit", "", "")
		return nil, &approval, nil
	}

	discount := model.Discount{
		Type:   req.Type,
		Value:  req.Value,
		Code:   req.Code,
		Amount: cart.Amount(req.Type, req.Value, subtotal),
	}
	if req.ApprovedBy != "" {
		now := time.Now()
		discount.ApprovedBy = req.ApprovedBy
		discount.ApprovedAt = &now
	}

	s.cart.ApplyDiscount(discount)
	s.persist(ctx)
	return s.view(), nil, nil
}

func (s *cartService) RemoveDiscount(ctx context.Context) *dto.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveDiscount()
	s.persist(ctx)
	return s.view()
}

func (s *cartService) BuildTransaction(_ context.Context, req dto.CheckoutRequest) (*dto.TransactionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart.Items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	items := make([]dto.TransactionItemRequest, 0, len(s.cart.Items))
	for _, line := range s.cart.Items {
		items = append(items, dto.TransactionItemRequest{
			ProductID:   line.ID,
			ProductCode: line.SKU,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.BasePrice,
			TaxRate:     line.TaxRate,
		})
	}

	return &dto.TransactionRequest{
		TenantID:       s.tenantID,
		StoreID:        s.storeID,
		Type:           "SALE",
		Items:          items,
		Payments:       req.Payments,
		Subtotal:       s.cart.Subtotal(),
		TaxAmount:      s.cart.Tax(),
		DiscountAmount: s.cart.DiscountAmount(),
		GrandTotal:     s.cart.GrandTotal(),
		CashierID:      req.CashierID,
		CashierName:    req.CashierName,
		Notes:          req.Notes,
	}, nil
}
