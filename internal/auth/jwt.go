package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrWrongTokenUse = errors.New("wrong token type")
)

// Claims are the verified contents of a wirechat token.
type Claims struct {
	UserID    int64
	IsAdmin   bool
	TokenType string
	ExpiresAt time.Time
}

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       int64  `json:"user_id"`
}

// Service signs and verifies HS256 tokens. Claims carry sub (user id),
// type (access|refresh), iat, exp and is_admin.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService validates the secret and returns a token service.
func NewService(secret string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret too short (min 16 chars)")
	}
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// IssuePair mints a fresh access/refresh token pair for the user.
func (s *Service) IssuePair(userID int64, isAdmin bool) (TokenPair, error) {
	access, err := s.sign(userID, isAdmin, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(userID, isAdmin, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		UserID:       userID,
	}, nil
}

func (s *Service) sign(userID int64, isAdmin bool, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(userID, 10),
		"type":     tokenType,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		"is_admin": isAdmin,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a token of either type.
func (s *Service) Verify(token string) (*Claims, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrInvalidToken
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != TokenTypeAccess && tokenType != TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	out := &Claims{
		UserID:    userID,
		TokenType: tokenType,
	}
	if v, ok := claims["is_admin"].(bool); ok {
		out.IsAdmin = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// VerifyAccess validates an access token specifically.
func (s *Service) VerifyAccess(token string) (*Claims, error) {
	c, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if c.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("%w: want access, got %s", ErrWrongTokenUse, c.TokenType)
	}
	return c, nil
}

// VerifyRefresh validates a refresh token specifically.
func (s *Service) VerifyRefresh(token string) (*Claims, error) {
	c, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if c.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: want refresh, got %s", ErrWrongTokenUse, c.TokenType)
	}
	return c, nil
}
