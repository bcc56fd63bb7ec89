// Package auth verifies the bearer tokens that guard catalog writes.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/product-catalog/pkg/middleware"
)

// RoleAdmin is the role allowed to write to the catalog.
const RoleAdmin = "admin"

// Claims represents the JWT claims of an access token issued by the user
// service.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 access tokens.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a verifier for tokens signed with secret. A non-empty
// issuer must match the token's iss claim.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// Validate parses and validates an access token, returning the claims in the
// shape the auth middleware expects.
func (v *JWTVerifier) Validate(tokenString string) (*middleware.Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	return &middleware.Claims{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

// Sign issues a token for userID with role, valid for ttl. The catalog only
// verifies tokens; Sign serves tooling and tests.
func (v *JWTVerifier) Sign(userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
