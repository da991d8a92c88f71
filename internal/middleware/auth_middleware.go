package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dum-man/messenger/internal/session"
	"github.com/dum-man/messenger/internal/transport/httpdto"
)

// AuthMiddleware resolves the bearer token to a session and injects it
// into the request context. Requests without a valid session are
// rejected before reaching any handler.
func AuthMiddleware(provider session.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := provider.SessionFromToken(extractBearer(c))
		if err != nil || !sess.Authenticated() {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("not authorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
