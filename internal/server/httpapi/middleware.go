package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/offlinehq/tidesync/internal/common"
	"github.com/offlinehq/tidesync/internal/server/auth"
)

// ownerKey is the gin context key carrying the authenticated owner id.
const ownerKey = "owner"

// authRequired validates the bearer token and stores the owner id in the
// request context. An expired token gets the distinguished error body so
// clients know to refresh instead of re-login.
func authRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AccessTokenHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		userID, err := auth.GetUserIDFromToken(token, secret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: common.TokenExpiredMessage})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}

		c.Set(ownerKey, userID)
		c.Next()
	}
}

func ownerFrom(c *gin.Context) string {
	return c.GetString(ownerKey)
}
