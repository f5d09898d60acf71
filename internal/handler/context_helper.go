package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/elective-portal-api/internal/middleware"
	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/response"
)

// claimsFromContext returns the caller's claims, or nil on routes mounted
// behind OptionalJWT.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes a 401 when the request carries no claims.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}
