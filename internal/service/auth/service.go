package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"campus-erp/internal/config"
	"campus-erp/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Service turns bearer tokens into actors. Tokens are minted by the campus
// identity provider with the shared HS256 secret.
type Service interface {
	ValidateAccessToken(tokenString string) (*Claims, error)
	IssueAccessToken(actor domain.Actor) (string, error)
}

type Claims struct {
	UserID   uuid.UUID       `json:"user_id"`
	UserType domain.UserType `json:"user_type"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() domain.Actor {
	return domain.Actor{ID: c.UserID, Type: c.UserType}
}

type service struct {
	secret []byte
	expiry time.Duration
}

func NewService(cfg *config.Config) Service {
	return &service{
		secret: []byte(cfg.JWTSecret),
		expiry: cfg.JWTAccessExpiry,
	}
}

func (s *service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil || !claims.UserType.IsValid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *service) IssueAccessToken(actor domain.Actor) (string, error) {
	if !actor.Type.IsValid() {
		return "", fmt.Errorf("issue token: invalid user type %q", actor.Type)
	}
	now := time.Now()
	claims := &Claims{
		UserID:   actor.ID,
		UserType: actor.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   actor.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
