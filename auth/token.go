// Package auth turns bearer tokens into profile ids.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Parser validates HS256 tokens whose subject is a numeric profile id.
type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

// Enabled reports whether a secret was configured.
func (p *Parser) Enabled() bool {
	return p != nil && len(p.secret) > 0
}

// ProfileID returns the profile id carried in the token's subject.
func (p *Parser) ProfileID(tokenString string) (int64, error) {
	if !p.Enabled() {
		return 0, fmt.Errorf("%w: token auth disabled", ErrInvalidToken)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: subject %q is not a profile id", ErrInvalidToken, claims.Subject)
	}
	return id, nil
}

// Issue signs a token for the profile. Used by tooling and tests.
func (p *Parser) Issue(profileID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(profileID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
