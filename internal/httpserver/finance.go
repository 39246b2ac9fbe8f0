package httpserver

import (
	"net/http"

	financesvc "cutin/internal/service/finance"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *handler) finances(c *gin.Context) {
	s, err := h.deps.Finance.Summary(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *handler) dashboard(c *gin.Context) {
	r, err := financesvc.ParseRange(c.Query("range"))
	if err != nil {
		h.fail(c, err)
		return
	}
	d, err := h.deps.Finance.Dashboard(c.Request.Context(), currentUser(c).ID, r)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) profit(c *gin.Context) {
	sell, err := decimal.NewFromString(c.Query("sell"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "sell must be a number")
		return
	}
	cost, err := decimal.NewFromString(c.Query("cost"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "cost must be a number")
		return
	}
	c.JSON(http.StatusOK, financesvc.CalculateProfit(sell, cost))
}
