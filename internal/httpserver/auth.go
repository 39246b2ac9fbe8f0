package httpserver

import (
	"net/http"

	"cutin/internal/domain"
	authsvc "cutin/internal/service/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         *domain.User `json:"user,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type pushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *handler) register(c *gin.Context) {
	var req authsvc.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid body")
		return
	}
	u, err := h.deps.Auth.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "email and password required")
		return
	}
	u, access, refresh, err := h.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    h.deps.Auth.AccessTTLSeconds(),
		User:         u,
	})
}

func (h *handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "refresh_token required")
		return
	}
	access, refresh, err := h.deps.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    h.deps.Auth.AccessTTLSeconds(),
	})
}

// logout revokes the caller's tokens and releases their in-memory cart; the
// cart itself stays in storage for the next session.
func (h *handler) logout(c *gin.Context) {
	user := currentUser(c)
	if err := h.deps.Auth.Logout(c.Request.Context(), user.ID); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.deps.Carts.Evict(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn("release cart on logout", zap.String("user_id", user.ID), zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

func (h *handler) setPushToken(c *gin.Context) {
	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "token required")
		return
	}
	if err := h.deps.Auth.SetPushToken(c.Request.Context(), currentUser(c).ID, req.Token); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
