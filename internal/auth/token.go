package auth

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/coindash/coindash-server/internal/apperrors"
)

// Service issues and verifies the signed bearer tokens carried by
// authenticated requests. Tokens are stateless: any process holding the
// secret can verify them, and there is no revocation.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

func (s *Service) Issue(username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

// Verify parses and checks the token signature and expiry, returning the
// username claim. It has no side effects.
func (s *Service) Verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return "", apperrors.ErrTokenExpired
		}
		return "", apperrors.ErrTokenMalformed
	}
	if !token.Valid {
		return "", apperrors.ErrTokenMalformed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperrors.ErrTokenMalformed
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return "", apperrors.ErrTokenMalformed
	}
	return username, nil
}
