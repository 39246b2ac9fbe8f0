package httpserver

import (
	"io"
	"net/http"

	"cutin/internal/images"
	merchantsvc "cutin/internal/service/merchant"
	"github.com/gin-gonic/gin"
)

type availabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

func (h *handler) listMerchants(c *gin.Context) {
	list, err := h.deps.Merchants.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"merchants": list})
}

func (h *handler) searchMerchants(c *gin.Context) {
	list, err := h.deps.Merchants.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"merchants": list})
}

func (h *handler) getMerchant(c *gin.Context) {
	h.getMerchantByID(c, c.Param("id"))
}

func (h *handler) merchantMenu(c *gin.Context) {
	items, err := h.deps.Merchants.PublicMenu(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handler) getProfile(c *gin.Context) {
	h.getMerchantByID(c, currentUser(c).ID)
}

func (h *handler) getMerchantByID(c *gin.Context, id string) {
	m, err := h.deps.Merchants.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *handler) saveProfile(c *gin.Context) {
	var req merchantsvc.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid body")
		return
	}
	m, err := h.deps.Merchants.SaveProfile(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// uploadImage takes a multipart "file" plus a "kind" of menu or banner.
func (h *handler) uploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "file required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, images.MaxSize+1))
	if err != nil {
		h.fail(c, err)
		return
	}

	kind := merchantsvc.ImageKind(c.DefaultPostForm("kind", string(merchantsvc.ImageMenu)))
	url, err := h.deps.Merchants.UploadImage(c.Request.Context(), currentUser(c).ID, kind, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *handler) getMenu(c *gin.Context) {
	items, err := h.deps.Merchants.Menu(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handler) addMenuItem(c *gin.Context) {
	var req merchantsvc.MenuItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid body")
		return
	}
	item, err := h.deps.Merchants.AddMenuItem(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *handler) updateMenuItem(c *gin.Context) {
	var req merchantsvc.MenuItemPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid body")
		return
	}
	item, err := h.deps.Merchants.UpdateMenuItem(c.Request.Context(), currentUser(c).ID, c.Param("itemId"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handler) setAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "available required")
		return
	}
	item, err := h.deps.Merchants.SetAvailability(c.Request.Context(), currentUser(c).ID, c.Param("itemId"), *req.Available)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handler) deleteMenuItem(c *gin.Context) {
	if err := h.deps.Merchants.DeleteMenuItem(c.Request.Context(), currentUser(c).ID, c.Param("itemId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
