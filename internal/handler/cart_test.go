package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartRouter(cart *stubCartService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCartHandler(cart, nil)
	r.PUT("/v1/cart/items/:id", h.UpdateQuantity)
	return r
}

// Non-positive quantities are accepted at the boundary and ignored by the
// cart, so zero and negative inputs behave identically.
func TestUpdateQuantityPassesNonPositiveThrough(t *testing.T) {
	for _, quantity := range []int{0, -1} {
		cart := &stubCartService{}
		r := cartRouter(cart)

		body := fmt.Sprintf(`{"quantity":%d}`, quantity)
		req := httptest.NewRequest(http.MethodPut, "/v1/cart/items/p1", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, cart.lastQuantity, "quantity %d must reach the cart", quantity)
		assert.Equal(t, quantity, *cart.lastQuantity)
	}
}
