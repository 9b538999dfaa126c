package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pipeflow/deal-todo-api/internal/services"
	"github.com/pipeflow/deal-todo-api/pkg/utils"
)

// ClaimsContextKey is the gin context key the verified surface claims are
// stored under.
const ClaimsContextKey = "surface_claims"

// JWTMiddleware verifies platform-signed surface tokens
type JWTMiddleware struct {
	jwtService *services.JWTService
}

// NewJWTMiddleware creates a new JWT middleware
func NewJWTMiddleware(jwtService *services.JWTService) *JWTMiddleware {
	return &JWTMiddleware{
		jwtService: jwtService,
	}
}

// SurfaceAuthRequired enforces a valid surface token on panel and settings
// requests. The platform passes the token as a `token` query parameter when
// it loads an iframe; a bearer header works too for direct API callers.
func (m *JWTMiddleware) SurfaceAuthRequired() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			utils.SendErrorResponse(c, http.StatusUnauthorized, "Authorization token is required", nil)
			c.Abort()
			return
		}

		claims, err := m.jwtService.VerifySurfaceToken(token)
		if err != nil {
			if services.IsTokenExpired(err) {
				utils.SendErrorResponse(c, http.StatusUnauthorized, "Token expired", err)
			} else {
				utils.SendErrorResponse(c, http.StatusUnauthorized, "Invalid token", err)
			}
			c.Abort()
			return
		}

		c.Set(ClaimsContextKey, claims)
		c.Next()
	})
}

// extractToken pulls the surface token from the query string or the
// Authorization header, query string first.
func (m *JWTMiddleware) extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}

// GetClaims returns the verified surface claims set by SurfaceAuthRequired,
// or nil when the middleware did not run.
func GetClaims(c *gin.Context) *services.SurfaceClaims {
	value, exists := c.Get(ClaimsContextKey)
	if !exists {
		return nil
	}

	claims, ok := value.(*services.SurfaceClaims)
	if !ok {
		return nil
	}

	return claims
}
