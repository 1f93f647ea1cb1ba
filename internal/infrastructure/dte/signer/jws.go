package signer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jhoicas/facturacion-dte/internal/domain"
)

// TokenType valor de "typ" en la cabecera.
const TokenType = "JWS"

// Header cabecera del token compacto.
type Header struct {
	Algorithm  string `json:"alg"`
	Type       string `json:"typ,omitempty"`
	KeyID      string `json:"kid,omitempty"`
	Thumbprint string `json:"x5t#S256,omitempty"`
}

var segmentEncoding = base64.RawURLEncoding

// DecodeHeader decodifica la cabecera SIN verificar la firma.
//
// Solo para diagnóstico o visualización: que un token decodifique no
// significa que sea auténtico. Para eso está Service.Verify.
func DecodeHeader(token string) (Header, error) {
	parts, err := splitToken(token)
	if err != nil {
		return Header{}, err
	}
	return decodeHeaderSegment(parts[0])
}

// DecodePayload decodifica el payload SIN verificar la firma.
//
// Solo para diagnóstico o visualización: el contenido devuelto puede haber
// sido alterado. Para obtener un payload confiable use Service.Verify.
func DecodePayload(token string) (json.RawMessage, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, err
	}
	payload, err := segmentEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload no es base64url", domain.ErrMalformedToken)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload no es JSON", domain.ErrMalformedToken)
	}
	return payload, nil
}

func splitToken(token string) ([]string, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: se esperaban 3 segmentos, hay %d", domain.ErrMalformedToken, len(parts))
	}
	return parts, nil
}

func decodeHeaderSegment(seg string) (Header, error) {
	raw, err := segmentEncoding.DecodeString(seg)
	if err != nil {
		return Header{}, fmt.Errorf("%w: cabecera no es base64url", domain.ErrMalformedToken)
	}
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return Header{}, fmt.Errorf("%w: cabecera no es JSON", domain.ErrMalformedToken)
	}
	return h, nil
}

func encodeHeader(h Header) (string, error) {
	raw, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("firma: serializar cabecera: %w", err)
	}
	return segmentEncoding.EncodeToString(raw), nil
}
