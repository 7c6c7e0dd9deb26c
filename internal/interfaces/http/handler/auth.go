package handler

import (
	"errors"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/auth"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/logger"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/dto"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthHandler serves /auth. Tokens are issued by the identity provider; this
// handler only inspects and revokes them.
type AuthHandler struct {
	BaseHandler
	revocations auth.RevocationList
	tokenTTL    time.Duration
}

// NewAuthHandler creates a new AuthHandler. tokenTTL bounds how long a
// user-wide revocation is kept.
func NewAuthHandler(revocations auth.RevocationList, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{revocations: revocations, tokenTTL: tokenTTL}
}

// MeResponse describes the authenticated caller
type MeResponse struct {
	UserID          uuid.UUID  `json:"user_id"`
	DepartmentID    *uuid.UUID `json:"department_id,omitempty"`
	RoleTier        string     `json:"role_tier,omitempty"`
	DepartmentAdmin bool       `json:"department_admin"`
	Applicant       bool       `json:"applicant"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// RegisterRoutes implements router.RouteRegistrar
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth")
	g.GET("/me", h.Me)
	g.POST("/revoke", h.Revoke)
	g.POST("/revoke-user", h.RevokeUser)
}

// Me returns the caller identity carried by the token
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	resp := MeResponse{
		UserID:          actor.UserID,
		DepartmentAdmin: actor.DepartmentAdmin,
		Applicant:       actor.IsApplicant(),
	}
	if actor.DepartmentID != uuid.Nil {
		id := actor.DepartmentID
		resp.DepartmentID = &id
	}
	if actor.Tier.IsValid() {
		resp.RoleTier = actor.Tier.String()
	}
	if claims := middleware.GetClaims(c); claims != nil && claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		resp.ExpiresAt = &exp
	}
	h.Success(c, resp)
}

// Revoke revokes the token of the current request
func (h *AuthHandler) Revoke(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if err := h.revocations.Revoke(c.Request.Context(), claims); err != nil {
		if errors.Is(err, auth.ErrInvalidClaims) {
			h.BadRequest(c, "Token carries no ID and cannot be revoked")
			return
		}
		h.HandleError(c, err)
		return
	}
	logger.FromContext(c.Request.Context()).Info("Token revoked", zap.String("jti", claims.ID))
	h.NoContent(c)
}

// RevokeUser revokes every token issued to a user so far. Department admins only.
func (h *AuthHandler) RevokeUser(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	if !actor.DepartmentAdmin {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodePermissionDenied), dto.ErrCodePermissionDenied,
			"Only department admins may revoke another user's tokens")
		return
	}
	var req dto.RevokeUserRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.revocations.RevokeUser(c.Request.Context(), req.UserID, h.tokenTTL); err != nil {
		h.HandleError(c, err)
		return
	}
	logger.FromContext(c.Request.Context()).Info("User tokens revoked",
		zap.String("user_id", req.UserID),
		zap.String("revoked_by", actor.UserID.String()))
	h.NoContent(c)
}
