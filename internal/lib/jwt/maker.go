// Package jwt выпускает и проверяет JWT, которыми провайдер идентификации
// передаёт движку пользователя и его роль.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Claims: данные вызывающего в токене.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Caller переводит claims в вызывающего движка.
func (c *Claims) Caller() models.Caller {
	return models.Caller{UserID: c.UserID, Role: models.Role(c.Role), Email: c.Email}
}

// Maker подписывает и проверяет токены общим секретом (HS256).
type Maker struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт Maker по секрету и времени жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *Maker {
	return &Maker{secretKey: []byte(secretKey), tokenTTL: ttl}
}

// GenerateToken выпускает токен для вызывающего.
func (m *Maker) GenerateToken(caller models.Caller) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: caller.UserID,
		Role:   string(caller.Role),
		Email:  caller.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// ParseToken проверяет подпись и срок действия токена и возвращает его claims.
func (m *Maker) ParseToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseToken"

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return m.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("token without user_id"))
	}
	switch models.Role(claims.Role) {
	case models.RoleUser, models.RoleMentor, models.RoleAdmin, models.RoleSystem:
	default:
		return nil, fmt.Errorf("%s: unknown role %q", op, claims.Role)
	}
	return claims, nil
}
