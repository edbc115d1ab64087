package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/catalog_api/internal/utils"
)

type JWTMiddleware struct{}

func NewJWTMiddleware() *JWTMiddleware {
	return &JWTMiddleware{}
}

// Handle requires a Bearer token in the Authorization header.
func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		m.authorize(c, parts[1])
	}
}

// HandleQueryToken also accepts the token from the "token" query parameter,
// for EventSource clients that cannot set headers.
func (m *JWTMiddleware) HandleQueryToken() gin.HandlerFunc {
	header := m.Handle()
	return func(c *gin.Context) {
		if token := c.Query("token"); token != "" {
			m.authorize(c, token)
			return
		}
		header(c)
	}
}

func (m *JWTMiddleware) authorize(c *gin.Context, token string) {
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
		c.Abort()
		return
	}

	c.Set("user_id", claims.UserID)
	c.Set("email", claims.Email)
	c.Next()
}
