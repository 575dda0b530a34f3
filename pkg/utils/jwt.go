package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims terpadu dengan field flat untuk id_role dan privileges.
// Token diterbitkan oleh layanan login; service ini hanya memverifikasinya.
type Claims struct {
	IDKaryawan string `json:"id_karyawan"`
	Role       string `json:"role"`
	IDRole     int    `json:"id_role"`
	Privileges []int  `json:"privileges"`
	IDPoli     int    `json:"id_poli,omitempty"`
	Username   string `json:"username"`
	jwt.RegisteredClaims
}

func (c *Claims) HasPrivilege(priv int) bool {
	for _, p := range c.Privileges {
		if p == priv {
			return true
		}
	}
	return false
}

// GenerateJWTToken membuat token JWT HS256 dengan payload flat dan exp sesuai parameter.
func GenerateJWTToken(secret string, claims Claims, exp time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret key is missing")
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWTToken memvalidasi token JWT dan mengembalikan klaim terpadu.
func ValidateJWTToken(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret key is missing")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Pastikan metode signing benar
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
