// Package middleware provides the HTTP middleware of the licensing API.
package middleware

import (
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/auth"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Gin context keys. user_id, department_id and error_code are read by the
// request logger.
const (
	RequestIDKey    = "request_id"
	ClaimsKey       = "jwt_claims"
	ActorKey        = "actor"
	UserIDKey       = "user_id"
	DepartmentIDKey = "department_id"
	ErrorCodeKey    = "error_code"

	RequestIDHeader = "X-Request-ID"
)

// GetRequestID returns the request ID assigned by RequestID
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

// GetActor returns the authenticated caller
func GetActor(c *gin.Context) (identity.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return identity.Actor{}, false
	}
	actor, ok := v.(identity.Actor)
	return actor, ok
}

// GetClaims returns the validated token claims of the caller
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// abortWithError writes the standard error body and stops the chain
func abortWithError(c *gin.Context, status int, code, message string) {
	c.Set(ErrorCodeKey, code)
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
