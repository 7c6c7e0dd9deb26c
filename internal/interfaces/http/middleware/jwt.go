package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/auth"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/logger"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates identity provider access tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// Tokens is required for token validation
	Tokens TokenValidator
	// Revocations is optional; when set revoked tokens are rejected
	Revocations auth.RevocationList
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(tokens TokenValidator) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		Tokens: tokens,
		SkipPaths: []string{
			"/health",
			"/api/v1/health",
		},
		Logger: zap.NewNop(),
	}
}

// JWTAuth authenticates the bearer token and stores the caller's
// identity.Actor in the gin context.
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Invalid authorization header format")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Missing token")
			return
		}

		claims, err := cfg.Tokens.ValidateToken(token)
		if err != nil {
			code, message := tokenErrorCode(err)
			cfg.Logger.Debug("JWT authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path))
			abortWithError(c, http.StatusUnauthorized, code, message)
			return
		}

		if cfg.Revocations != nil {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims)
			switch {
			case err != nil:
				// The revocation store being down must not take the API with it.
				cfg.Logger.Error("Failed to check token revocation",
					zap.String("jti", claims.ID),
					zap.String("user_id", claims.UserID),
					zap.Error(err))
			case revoked:
				abortWithError(c, http.StatusUnauthorized, dto.ErrCodeTokenRevoked, "Token has been revoked")
				return
			}
		}

		actor, err := claims.Actor()
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Token does not identify a valid actor")
			return
		}

		userID := actor.UserID.String()
		departmentID := ""
		if actor.DepartmentID != uuid.Nil {
			departmentID = actor.DepartmentID.String()
			c.Set(DepartmentIDKey, departmentID)
		}
		c.Set(ClaimsKey, claims)
		c.Set(ActorKey, actor)
		c.Set(UserIDKey, userID)

		tier := ""
		if actor.Tier.IsValid() {
			tier = actor.Tier.String()
		}
		c.Request = c.Request.WithContext(
			logger.WithActor(c.Request.Context(), userID, departmentID, tier))

		c.Next()
	}
}

func tokenErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingUserID), errors.Is(err, auth.ErrInvalidClaims):
		return dto.ErrCodeTokenInvalid, "Token claims are invalid"
	default:
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
}
