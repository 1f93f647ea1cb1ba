package dte

import "encoding/json"

// Signer produce un token JWS compacto (header.payload.firma) sobre cualquier
// valor serializable a JSON.
type Signer interface {
	Sign(payload any) (string, error)
}

// VerificationResult resultado de verificar un token compacto.
// Payload es el JSON canónico firmado; solo se llena cuando Valid es true.
type VerificationResult struct {
	Valid   bool            `json:"valid"`
	Payload json.RawMessage `json:"payload"`
}

// Verifier comprueba un token compacto con el certificado activo.
// Una firma que no coincide es un resultado (Valid=false), no un error.
type Verifier interface {
	Verify(token string) (VerificationResult, error)
}
