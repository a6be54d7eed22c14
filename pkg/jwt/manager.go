// Package jwt validates medflow access tokens and exposes the claims the
// supply service scopes its answers by.
package jwt

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/medflow/medflow-supply/pkg/config"
	"github.com/medflow/medflow-supply/pkg/errors"
)

// Claims represents the access token claims
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`

	TenantID   string `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug"`

	// LineCategories restricts the supply lines a user may see. A missing
	// claim decodes to nil; an explicit empty list means unrestricted.
	LineCategories *[]int `json:"line_categories,omitempty"`
}

// HasLineCategories reports whether the token carried the line_categories claim.
func (c *Claims) HasLineCategories() bool {
	return c.LineCategories != nil
}

// Categories returns the line_categories claim. It is nil when the claim is
// absent and non-nil, possibly empty, when present.
func (c *Claims) Categories() []int {
	if c.LineCategories == nil {
		return nil
	}
	if *c.LineCategories == nil {
		return []int{}
	}
	return *c.LineCategories
}

// Subject describes the user a token is issued for.
type Subject struct {
	UserID         string
	Email          string
	Role           string
	Permissions    []string
	TenantID       string
	TenantSlug     string
	LineCategories []int
}

// Manager handles JWT operations
type Manager struct {
	config *config.JWTConfig
}

// NewManager creates a new JWT manager
func NewManager(cfg *config.JWTConfig) *Manager {
	return &Manager{config: cfg}
}

// GenerateAccessToken signs an HS256 access token. The supply service does
// not log users in; this is used by tooling and tests.
func (m *Manager) GenerateAccessToken(s Subject) (string, error) {
	now := time.Now()
	var categories *[]int
	if s.LineCategories != nil {
		lc := s.LineCategories
		categories = &lc
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   s.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID:         s.UserID,
		Email:          s.Email,
		Role:           s.Role,
		Permissions:    s.Permissions,
		TenantID:       s.TenantID,
		TenantSlug:     s.TenantSlug,
		LineCategories: categories,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.Secret))
}

// ValidateAccessToken validates an access token and returns the claims
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithIssuer(m.config.Issuer))

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.TokenInvalid()
	}
	return claims, nil
}
