package signer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"

	"github.com/gowebpki/jcs"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-dte/internal/domain"
)

// canonicalJSON serializa v con las reglas de JCS (RFC 8785): claves
// ordenadas por unidades UTF-16, sin espacios, strings con el escape mínimo
// y números en la forma ES6 de jcs.NumberToJSON.
//
// Los números se leen como json.Number y no como float64: si la forma ES6
// cambiaría el valor (montos de más de 15 cifras, cantidades con muchos
// decimales) se escribe el decimal exacto sin ceros sobrantes. Así el payload
// firmado siempre conserva los montos del documento.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: el payload no es serializable a JSON: %v", domain.ErrInvalidInput, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: canonizar payload: %v", domain.ErrInvalidInput, err)
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree); err != nil {
		return nil, fmt.Errorf("%w: canonizar payload: %v", domain.ErrInvalidInput, err)
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case string:
		writeCanonicalString(buf, x)
	case json.Number:
		n, err := canonicalNumber(x)
		if err != nil {
			return err
		}
		buf.WriteString(n)
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return lessUTF16(keys[i], keys[j]) })
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("tipo JSON inesperado %T", v)
	}
	return nil
}

// canonicalNumber forma ES6 si representa exactamente el mismo valor; si no,
// el decimal exacto.
func canonicalNumber(n json.Number) (string, error) {
	exact, err := decimal.NewFromString(n.String())
	if err != nil {
		return "", fmt.Errorf("número %q inválido", n.String())
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
		if es6, err := jcs.NumberToJSON(f); err == nil {
			if back, err := decimal.NewFromString(es6); err == nil && back.Equal(exact) {
				return es6, nil
			}
		}
	}
	return exact.String(), nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func lessUTF16(a, b string) bool {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}
