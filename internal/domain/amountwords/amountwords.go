// Package amountwords convierte montos en dólares a su representación en letras
// tal como se exige en el campo totalLetras del DTE:
//
//	125.00     → "CIENTO VEINTICINCO 00/100 DOLARES"
//	21.05      → "VEINTIUNO 05/100 DOLARES"
//	1000000.00 → "UN MILLON 00/100 DOLARES"
//
// La parte entera se descompone por bandas (unidades, decenas, centenas, miles,
// millones, billones en escala larga). Los centavos se expresan como fracción
// literal de dos dígitos. La salida va en mayúsculas y sin tildes.
package amountwords

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/facturacion-dte/internal/domain"
)

// CurrencyName sufijo de moneda del texto legal.
const CurrencyName = "DOLARES"

const (
	thousand = int64(1_000)
	million  = int64(1_000_000)
	billion  = int64(1_000_000_000_000) // billón: 10^12
)

// MaxAmount mayor monto representable (999 billones y fracción).
var MaxAmount = decimal.RequireFromString("999999999999999.99")

var units = [30]string{
	"", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve",
	"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete", "dieciocho", "diecinueve",
	"veinte", "veintiuno", "veintidós", "veintitrés", "veinticuatro", "veinticinco", "veintiséis", "veintisiete", "veintiocho", "veintinueve",
}

var tensNames = [10]string{
	"", "", "", "treinta", "cuarenta", "cincuenta", "sesenta", "setenta", "ochenta", "noventa",
}

var hundredsNames = [10]string{
	"", "ciento", "doscientos", "trescientos", "cuatrocientos",
	"quinientos", "seiscientos", "setecientos", "ochocientos", "novecientos",
}

// ToWords devuelve el texto legal del monto. El monto debe ser no negativo,
// no mayor que MaxAmount y tener como máximo dos decimales.
func ToWords(amount decimal.Decimal) (string, error) {
	if amount.IsNegative() {
		return "", domain.NewValidationError("monto", "no puede ser negativo (%s)", amount.String())
	}
	if amount.GreaterThan(MaxAmount) {
		return "", domain.NewValidationError("monto", "excede el máximo representable en letras (%s)", MaxAmount.StringFixed(2))
	}
	if !amount.Equal(amount.Truncate(2)) {
		return "", domain.NewValidationError("monto", "admite como máximo 2 decimales (%s)", amount.String())
	}

	integer := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(integer)).Shift(2).IntPart()

	words := "cero"
	if integer > 0 {
		words = spell(integer, false)
	}
	return fmt.Sprintf("%s %02d/100 %s", legalText(words), cents, CurrencyName), nil
}

// spell convierte 0 < n < 10^15. short activa el apócope ("un", "veintiún")
// cuando el número precede a "mil", "millones" o "billones".
func spell(n int64, short bool) string {
	switch {
	case n >= billion:
		return scaled(n/billion, "un billón", "billones") + tail(n%billion, short)
	case n >= million:
		return scaled(n/million, "un millón", "millones") + tail(n%million, short)
	case n >= thousand:
		return thousands(n/thousand) + tail(n%thousand, short)
	default:
		return hundreds(int(n), short)
	}
}

func scaled(q int64, singular, plural string) string {
	if q == 1 {
		return singular
	}
	return spell(q, true) + " " + plural
}

// "mil", nunca "un mil".
func thousands(q int64) string {
	if q == 1 {
		return "mil"
	}
	return spell(q, true) + " mil"
}

func tail(rest int64, short bool) string {
	if rest == 0 {
		return ""
	}
	return " " + spell(rest, short)
}

func hundreds(n int, short bool) string {
	if n == 100 {
		return "cien"
	}
	c, r := n/100, n%100
	switch {
	case c == 0:
		return tens(r, short)
	case r == 0:
		return hundredsNames[c]
	default:
		return hundredsNames[c] + " " + tens(r, short)
	}
}

func tens(n int, short bool) string {
	if n < 30 {
		if short {
			switch n {
			case 1:
				return "un"
			case 21:
				return "veintiún"
			}
		}
		return units[n]
	}
	d, u := n/10, n%10
	switch {
	case u == 0:
		return tensNames[d]
	case u == 1 && short:
		return tensNames[d] + " y un"
	default:
		return tensNames[d] + " y " + units[u]
	}
}

// legalText quita tildes y pasa a mayúsculas. Los transformadores de x/text
// guardan estado, por eso se construyen en cada llamada.
func legalText(s string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripAccents, s)
	if err != nil {
		plain = s
	}
	return cases.Upper(language.Spanish).String(strings.TrimSpace(plain))
}
