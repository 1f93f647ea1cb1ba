package entity

import "github.com/shopspring/decimal"

// Amount monto o cantidad del DTE. Se serializa como número JSON (no como
// string, que es el comportamiento por defecto de decimal.Decimal) con su
// valor exacto y sin ceros sobrantes: 10.50 se escribe 10.5 y 0.00 como 0.
// Los montos ya vienen redondeados a 2 decimales; las cantidades y precios
// unitarios conservan todos sus decimales.
type Amount struct {
	decimal.Decimal
}

// NewAmount envuelve un decimal.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

// MarshalJSON escribe el valor exacto sin comillas.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON acepta número o string numérico.
func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}
