package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/satudata-api/internal/middleware"
	"github.com/noah-isme/satudata-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFromContext(c)
}

// actorFromContext turns verified claims into the capability handed to services.
// Anonymous requests get the zero Actor, which no service accepts.
func actorFromContext(c *gin.Context) models.Actor {
	return claimsFromContext(c).Actor()
}
