package httpserver

import (
	"net/http"
	"strings"

	"cutin/internal/domain"
	"github.com/gin-gonic/gin"
)

const userCtxKey = "cutin.user"

// authenticate resolves the bearer token into the calling user.
func (h *handler) authenticate(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		abortWithError(c, http.StatusUnauthorized, "missing bearer token")
		return
	}
	u, err := h.deps.Auth.LookupByToken(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		c.Abort()
		return
	}
	c.Set(userCtxKey, u)
	c.Next()
}

func requireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := currentUser(c); u == nil || u.Role != role {
			abortWithError(c, http.StatusForbidden, "only "+string(role)+" accounts may do this")
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(userCtxKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
