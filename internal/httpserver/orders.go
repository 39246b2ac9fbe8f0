package httpserver

import (
	"net/http"

	"cutin/internal/domain"
	"github.com/gin-gonic/gin"
)

type orderStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

// checkout places the caller's cart as a pay-in-store order.
func (h *handler) checkout(c *gin.Context) {
	buyer := currentUser(c)
	o, err := h.deps.Orders.Checkout(c.Request.Context(), *buyer, h.cartFor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.OrderPlaced()
	c.JSON(http.StatusCreated, o)
}

func (h *handler) customerOrders(c *gin.Context) {
	list, err := h.deps.Orders.ListForCustomer(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *handler) merchantOrders(c *gin.Context) {
	list, err := h.deps.Orders.ListForMerchant(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *handler) advanceOrder(c *gin.Context) {
	o, err := h.deps.Orders.Advance(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.OrderStatusChanged(string(o.Status))
	c.JSON(http.StatusOK, o)
}

func (h *handler) setOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "status required")
		return
	}
	o, err := h.deps.Orders.SetStatus(c.Request.Context(), currentUser(c).ID, c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.OrderStatusChanged(string(o.Status))
	c.JSON(http.StatusOK, o)
}

// followOrders upgrades to a websocket streaming the merchant's order events.
func (h *handler) followOrders(c *gin.Context) {
	if h.deps.Feed == nil {
		abortWithError(c, http.StatusServiceUnavailable, "order feed unavailable")
		return
	}
	h.deps.Feed.Serve(c.Writer, c.Request, currentUser(c).ID)
}
