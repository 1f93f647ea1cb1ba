// Package dte ensambla Documentos Tributarios Electrónicos: identificadores
// (número de control, código de generación), totales con redondeo por paso y
// validación de coherencia. No tiene efectos de red ni de almacenamiento.
package dte

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-dte/internal/domain"
)

const (
	controlNumberPrefix = "DTE"
	establishmentWidth  = 8
	sequenceWidth       = 15

	// MaxSequence mayor correlativo representable en 15 dígitos.
	MaxSequence int64 = 999_999_999_999_999

	// ControlNumberLength longitud fija del número de control.
	ControlNumberLength = len(controlNumberPrefix) + 1 + 2 + 1 + establishmentWidth + 1 + sequenceWidth
	// SequenceOffset posición (base 0) donde inicia el correlativo.
	SequenceOffset = ControlNumberLength - sequenceWidth
)

// ControlNumberPattern formato del número de control.
const ControlNumberPattern = `^DTE-\d{2}-[A-Z0-9]{8}-\d{15}$`

var (
	controlNumberRe = regexp.MustCompile(`^DTE-(\d{2})-([A-Z0-9]{8})-(\d{15})$`)
	documentTypeRe  = regexp.MustCompile(`^\d{2}$`)
	establishmentRe = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// ControlNumber partes de un número de control ya validado.
type ControlNumber struct {
	DocumentType  string
	Establishment string
	Sequence      int64
}

// String arma el número de control: DTE-{tipo}-{establecimiento}-{correlativo}.
func (c ControlNumber) String() string {
	return fmt.Sprintf("%s-%s-%s-%0*d", controlNumberPrefix, c.DocumentType, c.Establishment, sequenceWidth, c.Sequence)
}

// GenerateControlNumber construye el número de control.
// El código de establecimiento se pasa a mayúsculas, se rellena con ceros a la
// izquierda hasta 8 caracteres y, si es más largo, se conservan los 8 últimos.
func GenerateControlNumber(documentType, establishmentCode string, sequence int64) (string, error) {
	if !documentTypeRe.MatchString(documentType) {
		return "", domain.NewValidationError("tipoDte", "debe tener 2 dígitos, se recibió %q", documentType)
	}
	estab, err := NormalizeEstablishment(establishmentCode)
	if err != nil {
		return "", err
	}
	if sequence <= 0 {
		return "", domain.NewValidationError("correlativo", "debe ser mayor que cero, se recibió %d", sequence)
	}
	if sequence > MaxSequence {
		return "", domain.NewValidationError("correlativo", "excede el máximo de %d dígitos", sequenceWidth)
	}
	return ControlNumber{DocumentType: documentType, Establishment: estab, Sequence: sequence}.String(), nil
}

// ParseControlNumber descompone un número de control y recupera el correlativo.
func ParseControlNumber(s string) (ControlNumber, error) {
	m := controlNumberRe.FindStringSubmatch(s)
	if m == nil {
		return ControlNumber{}, domain.NewValidationError("numeroControl", "formato inválido: %q", s)
	}
	seq, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return ControlNumber{}, domain.NewValidationError("numeroControl", "correlativo inválido: %v", err)
	}
	return ControlNumber{DocumentType: m[1], Establishment: m[2], Sequence: seq}, nil
}

// NormalizeEstablishment devuelve el campo de establecimiento tal como aparece
// en el número de control: mayúsculas, relleno con ceros a 8 y, si es más
// largo, los 8 caracteres de la derecha. "1", "0001" y "00000001" son el mismo
// establecimiento.
func NormalizeEstablishment(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", domain.NewValidationError("codigoEstablecimiento", "es obligatorio")
	}
	if !establishmentRe.MatchString(code) {
		return "", domain.NewValidationError("codigoEstablecimiento", "solo admite letras y dígitos, se recibió %q", code)
	}
	if len(code) > establishmentWidth {
		return code[len(code)-establishmentWidth:], nil
	}
	return strings.Repeat("0", establishmentWidth-len(code)) + code, nil
}

// GenerateGenerationCode devuelve un UUID v4 en mayúsculas (8-4-4-4-12) leído de r.
// En producción r debe ser crypto/rand.Reader.
func GenerateGenerationCode(r io.Reader) (string, error) {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return "", fmt.Errorf("dte: generar código de generación: %w", err)
	}
	return strings.ToUpper(id.String()), nil
}
