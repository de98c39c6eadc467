package server

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vkazakov/chatline/internal/model/chat"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// Claims is the JWT payload for both access and refresh tokens. Refresh
// tokens additionally carry a jti tracked server-side so each one is
// usable exactly once.
type Claims struct {
	UserID int64  `json:"uid"`
	Tag    string `json:"tag"`
	jwt.RegisteredClaims
}

// Authenticator mints and validates the HS256 session tokens.
type Authenticator struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthenticator builds an authenticator from the shared secret and the
// two token lifetimes.
func NewAuthenticator(secret string, accessTTL, refreshTTL time.Duration) *Authenticator {
	return &Authenticator{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Access mints a short-lived access token.
func (a *Authenticator) Access(user chat.User) (string, error) {
	return a.sign(user, "", a.accessTTL)
}

// Refresh mints a refresh token bound to the given jti.
func (a *Authenticator) Refresh(user chat.User, jti string) (string, error) {
	return a.sign(user, jti, a.refreshTTL)
}

func (a *Authenticator) sign(user chat.User, jti string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.UserID,
		Tag:    user.Tag,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "chatline-dev",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate parses a token. Expired tokens come back as ErrExpiredToken so
// the auth middleware can answer 403 instead of 401.
func (a *Authenticator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
