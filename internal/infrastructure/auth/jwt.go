package auth

import (
	"errors"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token validation errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the identity provider's access token claims. Tokens carry the
// caller's home department and role tier; department admins may omit both.
type Claims struct {
	jwt.RegisteredClaims
	UserID          string `json:"user_id"`
	DepartmentID    string `json:"department_id,omitempty"`
	RoleTier        string `json:"role_tier,omitempty"`
	DepartmentAdmin bool   `json:"department_admin,omitempty"`
}

// Actor converts the claims into the caller identity used for authorization
func (c *Claims) Actor() (identity.Actor, error) {
	if c.UserID == "" {
		return identity.Actor{}, ErrMissingUserID
	}
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return identity.Actor{}, ErrInvalidClaims
	}

	actor := identity.Actor{UserID: userID, DepartmentAdmin: c.DepartmentAdmin}
	if c.DepartmentID != "" {
		if actor.DepartmentID, err = uuid.Parse(c.DepartmentID); err != nil {
			return identity.Actor{}, ErrInvalidClaims
		}
	}
	if c.RoleTier != "" {
		if actor.Tier, err = identity.ParseRoleTier(c.RoleTier); err != nil {
			return identity.Actor{}, ErrInvalidClaims
		}
	}
	if actor.IsApplicant() {
		return actor, nil
	}
	if err := actor.Validate(); err != nil {
		return identity.Actor{}, ErrInvalidClaims
	}
	return actor, nil
}

// RemainingTTL returns the time until the token expires
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

// JWTService validates access tokens. IssueToken exists for operators and
// tests; production tokens come from the identity provider.
type JWTService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	expiration := cfg.AccessTokenExpiration
	if expiration <= 0 {
		expiration = 15 * time.Minute
	}
	return &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: expiration,
	}
}

// IssueToken signs an access token for actor
func (s *JWTService) IssueToken(actor identity.Actor) (string, time.Time, error) {
	if !actor.IsApplicant() {
		if err := actor.Validate(); err != nil {
			return "", time.Time{}, err
		}
	}
	now := time.Now()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   actor.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:          actor.UserID.String(),
		DepartmentAdmin: actor.DepartmentAdmin,
	}
	if actor.DepartmentID != uuid.Nil {
		claims.DepartmentID = actor.DepartmentID.String()
	}
	if actor.Tier.IsValid() {
		claims.RoleTier = actor.Tier.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies signature, issuer and lifetime and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// Expiration returns the lifetime of issued tokens
func (s *JWTService) Expiration() time.Duration {
	return s.expiration
}
