package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
	"github.com/noah-isme/satudata-api/pkg/response"
)

// RequireRoles lets the request through only for the listed roles. Finer
// checks such as organization membership happen in the services.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Operators are the roles that manage assignments and reviews.
var Operators = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}

// Staff are every authenticated back-office role that may act on datasets.
var Staff = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleProducer}
