// Package auth authenticates console users. A token names the hotel its
// holder works for; admins may act on any hotel.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ariefcatur/go-hotel-console/internal/apperr"
)

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

type Claims struct {
	HotelID string `json:"hotel"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// CanAccess reports whether the holder may read or write hotelID.
func (c *Claims) CanAccess(hotelID string) bool {
	return c.Role == RoleAdmin || (hotelID != "" && c.HotelID == hotelID)
}

type contextKey string

const claimsKey = contextKey("claims")

func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func Issue(secret []byte, subject, hotelID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		HotelID: hotelID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func Parse(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token with 401.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				apperr.RespondErrorWithCode(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "Missing Authorization header", nil)
				return
			}
			claims, err := Parse(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "Token expired"
				}
				apperr.RespondErrorWithCode(w, http.StatusUnauthorized, apperr.CodeUnauthorized, msg, nil, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
