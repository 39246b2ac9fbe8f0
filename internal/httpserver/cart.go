package httpserver

import (
	"net/http"

	"cutin/internal/cart"
	"cutin/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type addCartItemRequest struct {
	Merchant domain.MerchantRef `json:"merchant"`
	Item     domain.NewCartItem `json:"item"`
}

type resolveConflictRequest struct {
	Decision cart.Decision `json:"decision" binding:"required"`
}

type changeQtyRequest struct {
	Qty *int `json:"qty" binding:"required"`
}

type cartResponse struct {
	Outcome  cart.Outcome     `json:"outcome,omitempty"`
	Cart     domain.CartState `json:"cart"`
	Total    decimal.Decimal  `json:"total"`
	TotalQty int              `json:"totalQty"`
	Conflict *cart.Conflict   `json:"conflict,omitempty"`
}

func newCartResponse(st domain.CartState) cartResponse {
	return cartResponse{Cart: st, Total: st.Total(), TotalQty: st.TotalQty()}
}

func (h *handler) cartFor(c *gin.Context) *cart.Store {
	return h.deps.Carts.Get(c.Request.Context(), currentUser(c).ID)
}

func (h *handler) getCart(c *gin.Context) {
	store := h.cartFor(c)
	resp := newCartResponse(store.Snapshot())
	if conflict, ok := store.PendingConflict(); ok {
		resp.Conflict = &conflict
	}
	c.JSON(http.StatusOK, resp)
}

// addCartItem answers 409 when the cart belongs to another merchant; the
// caller settles it through POST /cart/conflict.
func (h *handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid body")
		return
	}
	res := h.cartFor(c).AddItem(req.Merchant, req.Item)
	h.metrics.CartAdd(string(res.Outcome))

	resp := newCartResponse(res.State)
	resp.Outcome = res.Outcome
	resp.Conflict = res.Conflict
	switch res.Outcome {
	case cart.OutcomeConflict:
		c.JSON(http.StatusConflict, resp)
	case cart.OutcomeRejected:
		c.JSON(http.StatusBadRequest, resp)
	default:
		c.JSON(http.StatusOK, resp)
	}
}

func (h *handler) resolveCartConflict(c *gin.Context) {
	var req resolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Decision.Valid() {
		abortWithError(c, http.StatusBadRequest, "decision must be cancel or clear_and_add")
		return
	}
	st, ok := h.cartFor(c).ResolveConflict(req.Decision)
	if !ok {
		abortWithError(c, http.StatusConflict, "no pending conflict")
		return
	}
	c.JSON(http.StatusOK, newCartResponse(st))
}

func (h *handler) changeCartQty(c *gin.Context) {
	var req changeQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "qty required")
		return
	}
	st := h.cartFor(c).ChangeQty(c.Param("id"), *req.Qty)
	c.JSON(http.StatusOK, newCartResponse(st))
}

func (h *handler) removeCartItem(c *gin.Context) {
	st := h.cartFor(c).RemoveItem(c.Param("id"))
	c.JSON(http.StatusOK, newCartResponse(st))
}

func (h *handler) clearCart(c *gin.Context) {
	st := h.cartFor(c).Clear()
	c.JSON(http.StatusOK, newCartResponse(st))
}
