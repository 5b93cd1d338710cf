package handlers

import (
	"fmt"
	"os"
	"time"

	"bridge-backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims claims carried by a user token
type JWTClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// jwtSecret resolves the signing secret; the environment wins over the
// config file
func jwtSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	if config.AppConfig != nil && config.AppConfig.Auth.JWTSecret != "" {
		return []byte(config.AppConfig.Auth.JWTSecret)
	}
	return []byte("bridge-backend-jwt-secret-change-me")
}

// GenerateJWTToken issues a signed user token
func GenerateJWTToken(userID string) (string, error) {
	expiry := 24 * time.Hour
	if config.AppConfig != nil && config.AppConfig.Auth.TokenExpiry > 0 {
		expiry = time.Duration(config.AppConfig.Auth.TokenExpiry) * time.Hour
	}

	claims := JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "bridge-backend",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWTToken validates a user token and returns its claims
func ValidateJWTToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		if claims.UserID == "" {
			return nil, fmt.Errorf("token has no user id")
		}
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
