package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/georgemunganga/shopu-backend/internal/modules/user"
)

type service struct {
	userRepo user.Repository
	secret   []byte
	now      func() time.Time
}

// NewService creates a new auth service that checks HS256 tokens signed
// with secret.
func NewService(userRepo user.Repository, secret []byte) Service {
	return &service{userRepo: userRepo, secret: secret, now: time.Now}
}

func (s *service) Authenticate(ctx context.Context, tokenString string) (*user.User, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	email := user.NormalizeEmail(claims.Subject)
	if email == "" {
		return nil, ErrInvalidToken
	}

	u, err := s.userRepo.GetUser(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return &user.User{Email: email, Role: user.RoleCustomer}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *service) IssueToken(email string, ttl time.Duration) (string, error) {
	email = user.NormalizeEmail(email)
	if email == "" {
		return "", user.ErrEmailRequired
	}
	now := s.now()
	claims := &jwt.StandardClaims{
		Subject:   email,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
