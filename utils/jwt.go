package utils

import (
	"errors"
	"time"

	"tigermeter/config"

	"github.com/golang-jwt/jwt"
)

// RoleUser and RoleAdmin are the only recognized portal roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Principal is the identity extracted from a validated user token.
type Principal struct {
	UserID string
	Role   string
}

// GenerateToken creates a signed JWT carrying the subject and role
// claims. The token expires after the specified duration.
func GenerateToken(subject, role string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
}

// ExtractPrincipal validates a token and returns the typed principal.
// The role claim must be one of the recognized roles; anything else
// (missing, malformed, unknown) is rejected.
func ExtractPrincipal(tokenString string) (*Principal, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("token does not contain a valid 'sub' claim")
	}
	role, ok := claims["role"].(string)
	if !ok || (role != RoleUser && role != RoleAdmin) {
		return nil, errors.New("token does not contain a recognized 'role' claim")
	}
	return &Principal{UserID: sub, Role: role}, nil
}
