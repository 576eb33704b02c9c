// Package auth реализует регистрацию, вход и проверку JWT токенов.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"architect-assistant/internal/config"
)

// CustomClaims определяет пользовательские данные, которые мы храним в токене.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет JWT. Секрет и время жизни
// приходят из конфигурации, глобального состояния нет.
type TokenManager struct {
	secret     []byte
	expiration time.Duration
}

// NewTokenManager создает новый TokenManager.
func NewTokenManager(cfg config.JWTConfig) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("JWT secret is not configured")
	}

	expiration := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if expiration <= 0 {
		expiration = time.Hour
	}

	return &TokenManager{
		secret:     []byte(cfg.Secret),
		expiration: expiration,
	}, nil
}

// Expiration возвращает время жизни выпускаемых токенов.
func (m *TokenManager) Expiration() time.Duration {
	return m.expiration
}

// GenerateToken создает новый JWT для указанного UserID.
func (m *TokenManager) GenerateToken(userID string) (string, error) {
	expirationTime := time.Now().Add(m.expiration)
	claims := &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "architect-assistant",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken проверяет JWT и возвращает CustomClaims, если токен валиден.
func (m *TokenManager) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Принимаем только HMAC подпись
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("token is malformed: %w", err)
		} else if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token is expired: %w", err)
		} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, fmt.Errorf("token not active yet: %w", err)
		}
		return nil, fmt.Errorf("could not parse token: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
