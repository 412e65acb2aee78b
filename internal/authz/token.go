package authz

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/isharax9/healthcare-system-sub000/pkg/config"
	"github.com/isharax9/healthcare-system-sub000/pkg/interfaces"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// JWTClaims represents the claims carried in a session token
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenValidator implements JWT token validation and principal construction
type TokenValidator struct {
	jwtSecret []byte
	ttl       time.Duration
	issuer    string
	audience  string
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(cfg *config.JWTConfig) *TokenValidator {
	return &TokenValidator{
		jwtSecret: []byte(cfg.SecretKey),
		ttl:       time.Duration(cfg.AccessTokenTTL) * time.Second,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
	}
}

// ValidateToken validates a JWT token and returns user claims
func (tv *TokenValidator) ValidateToken(tokenString string) (*types.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tv.jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token expired")
	}

	return &types.UserClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     types.UserRole(claims.Role),
	}, nil
}

// PrincipalFromToken validates a token and builds the capability set for
// the session it represents
func (tv *TokenValidator) PrincipalFromToken(tokenString string) (interfaces.PermissionSet, error) {
	claims, err := tv.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return NewPrincipal(claims.Username, string(claims.Role)), nil
}

// GenerateToken issues a signed session token for a user
func (tv *TokenValidator) GenerateToken(user *types.User) (string, error) {
	now := time.Now()

	claims := &JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tv.issuer,
			Audience:  jwt.ClaimStrings{tv.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tv.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tv.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
