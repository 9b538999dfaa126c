package services

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService verifies the short-lived surface tokens the CRM platform signs
// into its panel and settings iframes. The platform issues these tokens; this
// service only validates them.
type JWTService struct {
	secret []byte
}

// SurfaceClaims carries the platform's surface token payload. User and
// company ids are present on most surfaces and cross-checked against the
// request path when available.
type SurfaceClaims struct {
	UserID    int64 `json:"user_id,omitempty"`
	CompanyID int64 `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

func (s *JWTService) VerifySurfaceToken(tokenString string) (*SurfaceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SurfaceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SurfaceClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// IsTokenExpired distinguishes an expired surface token from other
// verification failures so handlers can answer with a precise message.
func IsTokenExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
