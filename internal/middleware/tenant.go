package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pipeflow/deal-todo-api/pkg/utils"
)

// Context keys for the resolved tenant identifiers.
const (
	PlatformUserIDKey = "platform_user_id"
	CompanyIDKey      = "company_id"
)

// TenantContext parses the :userId/:companyId path parameters and, when the
// surface token carries its own identifiers, cross-checks them against the
// path. A token minted for one user cannot act as another.
func TenantContext() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		userID, err := utils.ParseExternalID(c.Param("userId"))
		if err != nil {
			utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid user identifier", err)
			c.Abort()
			return
		}

		companyID, err := utils.ParseExternalID(c.Param("companyId"))
		if err != nil {
			utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid company identifier", err)
			c.Abort()
			return
		}

		if claims := GetClaims(c); claims != nil {
			if claims.UserID != 0 && claims.UserID != userID {
				utils.SendErrorResponse(c, http.StatusForbidden, "Token does not match requested user", nil)
				c.Abort()
				return
			}
			if claims.CompanyID != 0 && claims.CompanyID != companyID {
				utils.SendErrorResponse(c, http.StatusForbidden, "Token does not match requested company", nil)
				c.Abort()
				return
			}
		}

		c.Set(PlatformUserIDKey, userID)
		c.Set(CompanyIDKey, companyID)
		c.Next()
	})
}

// TenantIDs returns the identifiers set by TenantContext.
func TenantIDs(c *gin.Context) (userID, companyID int64) {
	return c.GetInt64(PlatformUserIDKey), c.GetInt64(CompanyIDKey)
}
