package dte

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/amountwords"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

// MaxLineItems máximo de ítems en cuerpoDocumento.
const MaxLineItems = 2000

// IdentifiedRecipientThreshold a partir de este total una factura exige
// receptor identificado (tipo y número de documento, nombre).
var IdentifiedRecipientThreshold = decimal.NewFromInt(25_000)

var nrcRe = regexp.MustCompile(`^\d{1,8}$`)

func validateIssuer(is entity.Issuer) []error {
	var errs []error
	if _, err := dte.NormalizeNIT(is.NIT); err != nil {
		errs = append(errs, domain.NewValidationError("emisor.nit", "%v", err))
	}
	if !nrcRe.MatchString(is.NRC) {
		errs = append(errs, domain.NewValidationError("emisor.nrc", "debe tener entre 1 y 8 dígitos"))
	}
	if strings.TrimSpace(is.Name) == "" {
		errs = append(errs, domain.NewValidationError("emisor.nombre", "es obligatorio"))
	}
	return errs
}

func validateConsumer(r *entity.ConsumerRecipient) error {
	if r.DocumentNumber == nil || *r.DocumentNumber == "" {
		return nil
	}
	if r.DocumentType == nil || !dte.ValidRecipientIDTypes[*r.DocumentType] {
		return domain.NewValidationError("receptor.tipoDocumento", "es obligatorio y debe pertenecer al catálogo cuando se informa numDocumento")
	}
	if *r.DocumentType == dte.IDTypeDUI {
		if err := dte.ValidateDUI(*r.DocumentNumber); err != nil {
			return domain.NewValidationError("receptor.numDocumento", "%v", err)
		}
	}
	return nil
}

func validateTaxpayer(r *entity.TaxpayerRecipient) error {
	var errs []error
	if _, err := dte.NormalizeNIT(r.NIT); err != nil {
		errs = append(errs, domain.NewValidationError("receptor.nit", "%v", err))
	}
	if !nrcRe.MatchString(r.NRC) {
		errs = append(errs, domain.NewValidationError("receptor.nrc", "debe tener entre 1 y 8 dígitos"))
	}
	required := []struct{ field, value string }{
		{"receptor.nombre", r.Name},
		{"receptor.codActividad", r.ActivityCode},
		{"receptor.descActividad", r.ActivityDesc},
		{"receptor.direccion.departamento", r.Address.Department},
		{"receptor.direccion.municipio", r.Address.Municipality},
		{"receptor.direccion.complemento", r.Address.Complement},
		{"receptor.correo", r.Email},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, domain.NewValidationError(f.field, "es obligatorio para crédito fiscal"))
		}
	}
	return errors.Join(errs...)
}

func validateLine(i int, l LineInput) []error {
	field := func(name string) string { return fmt.Sprintf("cuerpoDocumento[%d].%s", i, name) }
	var errs []error
	if strings.TrimSpace(l.Description) == "" {
		errs = append(errs, domain.NewValidationError(field("descripcion"), "es obligatoria"))
	}
	if l.Kind != 0 && !dte.ValidItemKinds[l.Kind] {
		errs = append(errs, domain.NewValidationError(field("tipoItem"), "valor %d fuera de catálogo", l.Kind))
	}
	if !l.Quantity.IsPositive() {
		errs = append(errs, domain.NewValidationError(field("cantidad"), "debe ser mayor que cero, se recibió %s", l.Quantity.String()))
	}
	if l.UnitPrice.IsNegative() {
		errs = append(errs, domain.NewValidationError(field("precioUni"), "no puede ser negativo, se recibió %s", l.UnitPrice.String()))
	}
	if l.Discount.IsNegative() {
		errs = append(errs, domain.NewValidationError(field("montoDescu"), "no puede ser negativo"))
	} else if l.Quantity.IsPositive() && !l.UnitPrice.IsNegative() &&
		l.Discount.Round(2).GreaterThan(l.Quantity.Mul(l.UnitPrice).Round(2)) {
		errs = append(errs, domain.NewValidationError(field("montoDescu"), "excede el monto de la línea"))
	}
	switch l.Category {
	case TaxCategoryTaxed, TaxCategoryExempt, TaxCategoryNotSubject:
	default:
		errs = append(errs, domain.NewValidationError(field("categoria"), "valor %q fuera de catálogo", l.Category))
	}
	return errs
}

// ErrInconsistentDocument agrupa incoherencias entre el resumen y los ítems.
var ErrInconsistentDocument = errors.New("documento incoherente")

// ValidateDocument verifica que un TaxDocument ya ensamblado (o recibido firmado)
// sea coherente: número de control bien formado, ítems contiguos desde 1,
// totales iguales a los recalculados con redondeo por paso y totalLetras
// idéntico a la conversión de totalPagar.
func ValidateDocument(doc *entity.TaxDocument, taxRate decimal.Decimal) error {
	if doc == nil {
		return fmt.Errorf("%w: documento nulo", ErrInconsistentDocument)
	}
	var errs []error

	cn, err := ParseControlNumber(doc.Identification.ControlNumber)
	if err != nil {
		errs = append(errs, err)
	} else if cn.DocumentType != doc.Identification.DocumentType {
		errs = append(errs, fmt.Errorf("numeroControl tipo %s no coincide con tipoDte %s", cn.DocumentType, doc.Identification.DocumentType))
	}
	if doc.Identification.DocumentType == dte.DocumentTypeCCF && doc.Recipient == nil {
		errs = append(errs, domain.NewValidationError("receptor", "es obligatorio para crédito fiscal"))
	}
	if len(doc.LineItems) == 0 {
		errs = append(errs, domain.NewValidationError("cuerpoDocumento", "debe tener al menos un ítem"))
	}

	var t totals
	for i, item := range doc.LineItems {
		if item.Number != i+1 {
			errs = append(errs, fmt.Errorf("numItem %d en la posición %d: la numeración debe ser contigua desde 1", item.Number, i+1))
		}
		t.addLine(item.NotSubjectSale.Decimal, item.ExemptSale.Decimal, item.TaxedSale.Decimal, item.Discount.Decimal)
	}
	t.close(taxRate)

	s := doc.Summary
	check := func(name string, got entity.Amount, want decimal.Decimal) {
		if !got.Decimal.Equal(want) {
			errs = append(errs, fmt.Errorf("%s (%s) no coincide con el recalculado (%s)", name, got.StringFixed(2), want.StringFixed(2)))
		}
	}
	check("totalNoSuj", s.TotalNotSubject, t.notSubject)
	check("totalExenta", s.TotalExempt, t.exempt)
	check("totalGravada", s.TotalTaxed, t.taxed)
	check("subTotalVentas", s.SalesSubtotal, t.salesSubtotal)
	check("totalIva", s.TaxAmount, t.tax)
	check("montoTotalOperacion", s.OperationTotal, t.operationTotal)
	check("totalPagar", s.TotalPayable, t.totalPayable)

	if words, err := amountwords.ToWords(s.TotalPayable.Decimal); err != nil {
		errs = append(errs, err)
	} else if words != s.TotalInWords {
		errs = append(errs, fmt.Errorf("totalLetras %q no coincide con %q", s.TotalInWords, words))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInconsistentDocument}, errs...)...)
	}
	return nil
}
