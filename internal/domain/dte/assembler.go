package dte

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/amountwords"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

// elSalvador hora local del emisor (UTC-6, sin horario de verano).
var elSalvador = time.FixedZone("CST", -6*60*60)

// AssemblerConfig dependencias inyectables del ensamblador.
// Los valores cero se sustituyen por: IVA 13%, time.Now, crypto/rand y UTC-6.
type AssemblerConfig struct {
	TaxRate  decimal.Decimal
	Clock    func() time.Time
	Random   io.Reader
	Location *time.Location
}

// Assembler transforma una solicitud de negocio en un TaxDocument completo.
// Es seguro para uso concurrente si Random lo es (crypto/rand lo es).
type Assembler struct {
	taxRate  decimal.Decimal
	clock    func() time.Time
	random   io.Reader
	location *time.Location
}

// NewAssembler construye el ensamblador.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	a := &Assembler{
		taxRate:  cfg.TaxRate,
		clock:    cfg.Clock,
		random:   cfg.Random,
		location: cfg.Location,
	}
	if a.taxRate.IsZero() {
		a.taxRate = DefaultTaxRate
	}
	if a.clock == nil {
		a.clock = time.Now
	}
	if a.random == nil {
		a.random = rand.Reader
	}
	if a.location == nil {
		a.location = elSalvador
	}
	return a
}

// Assemble valida la solicitud y devuelve el documento con identificadores,
// ítems numerados desde 1 y resumen calculado. Los errores de datos de entrada
// cumplen errors.Is(err, domain.ErrValidation) e indican el campo.
func (a *Assembler) Assemble(req Request) (entity.TaxDocument, error) {
	if req == nil {
		return entity.TaxDocument{}, domain.NewValidationError("", "solicitud nula")
	}
	in := req.Input()
	docType := req.DocumentType()

	var errs []error
	if !dte.ValidEnvironments[in.Environment] {
		errs = append(errs, domain.NewValidationError("ambiente", "debe ser %q o %q, se recibió %q",
			dte.EnvironmentTest, dte.EnvironmentProduction, in.Environment))
	}
	errs = append(errs, validateIssuer(in.Issuer)...)
	if len(in.Lines) == 0 {
		errs = append(errs, domain.NewValidationError("cuerpoDocumento", "debe tener al menos un ítem"))
	}
	if len(in.Lines) > MaxLineItems {
		errs = append(errs, domain.NewValidationError("cuerpoDocumento", "admite como máximo %d ítems", MaxLineItems))
	}
	for i, l := range in.Lines {
		errs = append(errs, validateLine(i, l)...)
	}
	recipient, err := req.recipient()
	if err != nil {
		errs = append(errs, err)
	}
	controlNumber, err := GenerateControlNumber(docType, in.EstablishmentCode, in.Sequence)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return entity.TaxDocument{}, errors.Join(errs...)
	}

	items, sum := a.buildItems(in.Lines)
	summary, err := a.buildSummary(sum, in.OperationCondition)
	if err != nil {
		return entity.TaxDocument{}, err
	}
	if docType == dte.DocumentTypeFactura && summary.TotalPayable.GreaterThanOrEqual(IdentifiedRecipientThreshold) &&
		!identifiedConsumer(recipient) {
		return entity.TaxDocument{}, domain.NewValidationError("receptor",
			"las facturas desde %s USD requieren receptor identificado", IdentifiedRecipientThreshold.StringFixed(2))
	}

	generationCode, err := GenerateGenerationCode(a.random)
	if err != nil {
		return entity.TaxDocument{}, err
	}
	now := a.clock().In(a.location)

	doc := entity.TaxDocument{
		Identification: entity.Identification{
			Version:        dte.DocumentVersions[docType],
			Environment:    in.Environment,
			DocumentType:   docType,
			ControlNumber:  controlNumber,
			GenerationCode: generationCode,
			ModelType:      dte.ModelPrevious,
			OperationType:  dte.TransmissionNormal,
			EmissionDate:   now.Format("2006-01-02"),
			EmissionTime:   now.Format("15:04:05"),
			Currency:       dte.CurrencyUSD,
		},
		Issuer:    in.Issuer,
		Recipient: recipient,
		LineItems: items,
		Summary:   summary,
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		doc.Extension = &entity.Extension{Notes: &notes}
	}
	return doc, nil
}

func (a *Assembler) buildItems(lines []LineInput) ([]entity.LineItem, totals) {
	var t totals
	items := make([]entity.LineItem, 0, len(lines))
	for i, l := range lines {
		subtotal := LineSubtotal(l.Quantity, l.UnitPrice, l.Discount)
		item := entity.LineItem{
			Number:         i + 1,
			Kind:           l.Kind,
			Description:    strings.TrimSpace(l.Description),
			Quantity:       entity.NewAmount(l.Quantity),
			UnitMeasure:    l.UnitMeasure,
			UnitPrice:      entity.NewAmount(l.UnitPrice),
			Discount:       entity.NewAmount(round2(l.Discount)),
			NotSubjectSale: entity.NewAmount(decimal.Zero),
			ExemptSale:     entity.NewAmount(decimal.Zero),
			TaxedSale:      entity.NewAmount(decimal.Zero),
			Subtotal:       entity.NewAmount(subtotal),
		}
		if item.Kind == 0 {
			item.Kind = dte.ItemKindGoods
		}
		if item.UnitMeasure == 0 {
			item.UnitMeasure = dte.UnitUnit
		}
		if code := strings.TrimSpace(l.Code); code != "" {
			item.Code = &code
		}
		switch l.Category {
		case TaxCategoryTaxed:
			item.TaxedSale = entity.NewAmount(subtotal)
			item.Taxes = []string{dte.TaxCodeIVA}
		case TaxCategoryExempt:
			item.ExemptSale = entity.NewAmount(subtotal)
		case TaxCategoryNotSubject:
			item.NotSubjectSale = entity.NewAmount(subtotal)
		}
		t.addLine(item.NotSubjectSale.Decimal, item.ExemptSale.Decimal, item.TaxedSale.Decimal, item.Discount.Decimal)
		items = append(items, item)
	}
	return items, t
}

func (a *Assembler) buildSummary(t totals, condition int) (entity.DocumentSummary, error) {
	t.close(a.taxRate)
	words, err := amountwords.ToWords(t.totalPayable)
	if err != nil {
		return entity.DocumentSummary{}, fmt.Errorf("dte: total en letras: %w", err)
	}
	if condition == 0 {
		condition = dte.OperationCash
	}
	taxes := []entity.TaxLine{}
	if t.taxed.IsPositive() {
		taxes = append(taxes, entity.TaxLine{
			Code:        dte.TaxCodeIVA,
			Description: fmt.Sprintf("Impuesto al Valor Agregado %s%%", a.taxRate.Shift(2).String()),
			Value:       entity.NewAmount(t.tax),
		})
	}
	return entity.DocumentSummary{
		TotalNotSubject:    entity.NewAmount(t.notSubject),
		TotalExempt:        entity.NewAmount(t.exempt),
		TotalTaxed:         entity.NewAmount(t.taxed),
		SalesSubtotal:      entity.NewAmount(t.salesSubtotal),
		TotalDiscount:      entity.NewAmount(t.discount),
		Taxes:              taxes,
		Subtotal:           entity.NewAmount(t.salesSubtotal),
		TaxAmount:          entity.NewAmount(t.tax),
		OperationTotal:     entity.NewAmount(t.operationTotal),
		TotalPayable:       entity.NewAmount(t.totalPayable),
		TotalInWords:       words,
		OperationCondition: condition,
	}, nil
}

func identifiedConsumer(r entity.Recipient) bool {
	c, ok := r.(*entity.ConsumerRecipient)
	return ok && c.DocumentNumber != nil && *c.DocumentNumber != "" && c.Name != nil && *c.Name != ""
}
