package dte

import (
	"fmt"
	"unicode"
)

// ValidateDUI valida el dígito verificador de un DUI ("01234567-8" o "012345678").
// Algoritmo módulo 10 con pesos 9..2 sobre los 8 primeros dígitos.
func ValidateDUI(dui string) error {
	digits := extractDigits(dui)
	if len(digits) != 9 {
		return fmt.Errorf("dte: DUI debe tener 9 dígitos, se encontraron %d", len(digits))
	}
	var sum int
	for i := 0; i < 8; i++ {
		sum += int(digits[i]-'0') * (9 - i)
	}
	expected := byte('0' + (10-sum%10)%10)
	if digits[8] != expected {
		return fmt.Errorf("dte: dígito verificador del DUI inválido: esperado %c, recibido %c", expected, digits[8])
	}
	return nil
}

// NormalizeNIT devuelve solo los dígitos del NIT. Acepta NIT de 14 dígitos o
// DUI homologado (9 dígitos).
func NormalizeNIT(nit string) (string, error) {
	digits := extractDigits(nit)
	if len(digits) != 14 && len(digits) != 9 {
		return "", fmt.Errorf("dte: NIT debe tener 14 dígitos (o 9 si es DUI homologado), se encontraron %d", len(digits))
	}
	return string(digits), nil
}

func extractDigits(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) && r < 128 {
			out = append(out, byte(r))
		}
	}
	return out
}
