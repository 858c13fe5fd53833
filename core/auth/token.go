package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// NewToken signs a HS256 token for prof, valid for ttl from now.
func NewToken(prof Profile, secret, issuer string, now time.Time, ttl time.Duration) (string, *Claims, error) {
	claims := &Claims{
		Email: prof.Email,
		Role:  prof.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   prof.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, errors.Wrap(err, "signing token")
	}
	return ss, claims, nil
}

// ParseToken verifies tokenString and returns its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
