package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	messenger_errors "github.com/dum-man/messenger/pkg/errors"
)

// Provider resolves a bearer token to a session. Token issuance belongs
// to the identity service; this side only verifies.
type Provider interface {
	SessionFromToken(token string) (*Session, error)
}

type Claims struct {
	Username string `json:"username,omitempty"`
	Image    string `json:"image,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HS256 access tokens whose subject is the user id.
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

func (p *JWTProvider) SessionFromToken(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, messenger_errors.ErrUnauthorized
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Join(messenger_errors.ErrUnauthorized, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, messenger_errors.ErrUnauthorized
	}

	return &Session{
		User: &User{
			ID:       userID,
			Username: claims.Username,
			Image:    claims.Image,
		},
	}, nil
}
