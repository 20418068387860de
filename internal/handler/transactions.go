package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/service"
)

type TransactionsHandler struct {
	cart     service.CartService
	txns     service.TransactionService
	receipts service.ReceiptService
}

func NewTransactionsHandler(cart service.CartService, txns service.TransactionService, receipts service.ReceiptService) *TransactionsHandler {
	return &TransactionsHandler{cart: cart, txns: txns, receipts: receipts}
}

// Checkout finalizes the current cart: builds the submission payload, sends
// or queues it, clears the cart, and renders a receipt. The cashier gets the
// same shape of answer whether the sale went through live or was queued.
func (h *TransactionsHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !bindAndValidate(c, &req) {
		return
	}

	payload, err := h.cart.BuildTransaction(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}

	txn, err := h.txns.Submit(c.Request.Context(), *payload)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// The sale is committed (remotely or into the queue); the register is
	// ready for the next customer.
	h.cart.Clear(c.Request.Context())

	if txn.Request == nil {
		txn.Request = payload
	}
	receipt, err := h.receipts.Generate(c.Request.Context(), txn)
	if err != nil {
		// The sale stands even when the receipt cannot be rendered.
		log.Error().Err(err).Str("transaction", txn.ID).Msg("checkout: receipt generation failed")
	} else if req.EmailTo != "" {
		if err := h.receipts.Email(c.Request.Context(), req.EmailTo, receipt); err != nil {
			log.Error().Err(err).Str("to", req.EmailTo).Msg("checkout: receipt email enqueue failed")
		}
	}

	c.JSON(http.StatusCreated, dto.CheckoutResponse{Transaction: txn, Receipt: receipt})
}

func (h *TransactionsHandler) GetByID(c *gin.Context) {
	resp, err := h.txns.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TransactionsHandler) GetByNumber(c *gin.Context) {
	resp, err := h.txns.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List proxies transaction history from the backend; history is an
// online-only view.
func (h *TransactionsHandler) List(c *gin.Context) {
	var filter dto.HistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return
	}
	resp, err := h.txns.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Receipt serves a previously rendered PDF so the UI can reprint it.
func (h *TransactionsHandler) Receipt(c *gin.Context) {
	path, err := h.receipts.PDFFile(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("receipt not found"))
		return
	}
	c.File(path)
}

func (h *TransactionsHandler) Cancel(c *gin.Context) {
	resp, err := h.txns.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
