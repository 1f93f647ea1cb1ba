package dte

import "github.com/shopspring/decimal"

// DefaultTaxRate IVA 13%.
var DefaultTaxRate = decimal.RequireFromString("0.13")

// round2 redondea a 2 decimales, mitad hacia arriba (los montos nunca son negativos).
func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// LineSubtotal = round2(cantidad × precio) − descuento.
func LineSubtotal(quantity, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return round2(round2(quantity.Mul(unitPrice)).Sub(round2(discount)))
}

// totals acumula el resumen redondeando en cada paso de agregación, no solo al final.
type totals struct {
	notSubject decimal.Decimal
	exempt     decimal.Decimal
	taxed      decimal.Decimal
	discount   decimal.Decimal

	salesSubtotal  decimal.Decimal
	tax            decimal.Decimal
	operationTotal decimal.Decimal
	totalPayable   decimal.Decimal
}

func (t *totals) addLine(notSubject, exempt, taxed, discount decimal.Decimal) {
	t.notSubject = round2(t.notSubject.Add(notSubject))
	t.exempt = round2(t.exempt.Add(exempt))
	t.taxed = round2(t.taxed.Add(taxed))
	t.discount = round2(t.discount.Add(discount))
}

func (t *totals) close(taxRate decimal.Decimal) {
	t.salesSubtotal = round2(t.notSubject.Add(t.exempt).Add(t.taxed))
	t.tax = round2(t.taxed.Mul(taxRate))
	t.operationTotal = round2(t.salesSubtotal.Add(t.tax))
	t.totalPayable = round2(t.taxed.Add(t.tax))
}
