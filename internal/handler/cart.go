package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/model"
	"github.com/rjnat/cursorpos/internal/service"
)

type CartHandler struct {
	cart      service.CartService
	approvals service.ApprovalService
}

func NewCartHandler(cart service.CartService, approvals service.ApprovalService) *CartHandler {
	return &CartHandler{cart: cart, approvals: approvals}
}

func (h *CartHandler) View(c *gin.Context) {
	c.JSON(http.StatusOK, h.cart.View(c.Request.Context()))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.cart.AddItem(c.Request.Context(), req.ProductID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	c.JSON(http.StatusOK, h.cart.RemoveItem(c.Request.Context(), c.Param("id")))
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req dto.UpdateQuantityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.cart.UpdateQuantity(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DecrementItem lowers a line's quantity by one; at quantity 1 the line is
// removed, matching register keypad behavior.
func (h *CartHandler) DecrementItem(c *gin.Context) {
	c.JSON(http.StatusOK, h.cart.DecrementItem(c.Request.Context(), c.Param("id")))
}

func (h *CartHandler) Clear(c *gin.Context) {
	c.JSON(http.StatusOK, h.cart.Clear(c.Request.Context()))
}

func (h *CartHandler) SetCustomer(c *gin.Context) {
	var req dto.SetCustomerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp := h.cart.SetCustomer(c.Request.Context(), model.Customer{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
	})
	c.JSON(http.StatusOK, resp)
}

// CheckDiscount lets the UI probe whether a discount needs manager approval
// before committing it.
func (h *CartHandler) CheckDiscount(c *gin.Context) {
	var req dto.ApplyDiscountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.cart.CheckDiscount(c.Request.Context(), req, c.Query("cashierId"), c.Query("cashierName"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApplyDiscount applies the discount, or answers 202 with the escalation
// record when manager approval is still missing.
func (h *CartHandler) ApplyDiscount(c *gin.Context) {
	var req dto.ApplyDiscountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, approval, err := h.cart.ApplyDiscount(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if approval != nil {
		c.JSON(http.StatusAccepted, dto.DiscountCheckResponse{RequiresApproval: true, Request: approval})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) RemoveDiscount(c *gin.Context) {
	c.JSON(http.StatusOK, h.cart.RemoveDiscount(c.Request.Context()))
}

// RequestApproval forwards an above-limit discount to the backend for
// manager sign-off. Approval needs connectivity; offline it fails fast.
func (h *CartHandler) RequestApproval(c *gin.Context) {
	var req model.ApprovalRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.approvals.RequestApproval(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
