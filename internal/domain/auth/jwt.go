// Package auth validates the JWT access tokens issued by the identity
// service. Token issuance lives outside this service; only validation
// happens here.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stocktrail/internal/core/appctx"
)

// JWTConfig holds JWT validation configuration.
type JWTConfig struct {
	Secret string
	Issuer string
}

// Claims are the token claims this service understands.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"adm,omitempty"`
}

// JWTService validates access tokens.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// ValidateToken validates a token and returns its user context.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	opts := []jwt.ParserOption{}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &appctx.UserContext{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	}, nil
}

// GenerateToken signs a token for tests and local development.
func (s *JWTService) GenerateToken(userID, email, username string, isAdmin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   userID,
		Email:    email,
		Username: username,
		IsAdmin:  isAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
