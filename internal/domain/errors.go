package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrForbidden    = errors.New("acceso denegado")

	// ErrValidation: datos de negocio mal formados o fuera de rango.
	ErrValidation = errors.New("datos del documento inválidos")
	// ErrConfiguration: configuración de arranque inválida (fatal).
	ErrConfiguration = errors.New("configuración inválida")

	ErrEncryption = errors.New("no se pudo cifrar el valor")
	ErrDecryption = errors.New("no se pudo descifrar el valor")

	ErrCertificate          = errors.New("certificado inválido")
	ErrCertificateNotLoaded = errors.New("no hay certificado cargado")
	ErrCertificateExpired   = errors.New("el certificado no está vigente")
	ErrPrecondition         = errors.New("precondición no satisfecha")
	ErrMalformedToken       = errors.New("token mal formado")
	ErrInvalidSignature     = errors.New("la firma del documento no es válida")
)

// ValidationError identifica el campo que no superó la validación.
// errors.Is(err, ErrValidation) es verdadero para cualquier *ValidationError.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError construye un *ValidationError con mensaje formateado.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidationField devuelve el campo del primer *ValidationError encontrado en la cadena de err.
func ValidationField(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}
