package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/service"
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// Search lists products, remote first with cache fallback. The response says
// which source served it.
func (h *ProductsHandler) Search(c *gin.Context) {
	var filter dto.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return
	}
	resp, err := h.svc.Search(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh pulls the full catalog into the offline cache.
func (h *ProductsHandler) Refresh(c *gin.Context) {
	count, err := h.svc.RefreshCatalog(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cached": count})
}

func (h *ProductsHandler) ClearCache(c *gin.Context) {
	if err := h.svc.ClearCache(c.Request.Context()); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
