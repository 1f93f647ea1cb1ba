package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles de la API.
const (
	RoleAdmin    = "admin"    // administra certificados del tenant
	RoleEmisor   = "emisor"   // emite y firma documentos
	RoleConsulta = "consulta" // solo verifica y descarga
)

// ErrInvalidToken token de API inválido, expirado o de otro emisor.
var ErrInvalidToken = errors.New("jwt: token inválido")

// Identity quién llama a la API: usuario, tenant emisor y rol.
type Identity struct {
	UserID   string
	TenantID string
	Role     string
}

// KnownRole indica si role es uno de los roles de la API.
func KnownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEmisor, RoleConsulta:
		return true
	}
	return false
}

type claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// Generate emite un token HS256 para id, válido durante ttl.
func Generate(secret string, id Identity, issuer string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: id.TenantID,
		Role:     id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// Parse valida firma y expiración. Si issuer no está vacío también debe coincidir.
// Cualquier fallo se reporta como ErrInvalidToken.
func Parse(secret, issuer, tokenString string) (Identity, error) {
	if secret == "" {
		return Identity{}, fmt.Errorf("jwt: secret vacío")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: c.Subject, TenantID: c.TenantID, Role: c.Role}, nil
}
