package dte

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

// TaxCategory clasificación tributaria de una línea.
type TaxCategory string

const (
	TaxCategoryTaxed      TaxCategory = "gravado"
	TaxCategoryExempt     TaxCategory = "exento"
	TaxCategoryNotSubject TaxCategory = "no_sujeto"
)

// LineInput línea de negocio antes de calcular montos.
type LineInput struct {
	Kind        int // CAT-011; 0 = bienes
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitMeasure int // CAT-014; 0 = unidad
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	Category    TaxCategory
}

// DocumentInput datos comunes a todos los tipos de documento.
// El correlativo lo garantiza el llamador (monótono por establecimiento).
type DocumentInput struct {
	Issuer             entity.Issuer
	EstablishmentCode  string
	Sequence           int64
	Environment        string
	OperationCondition int // CAT-016; 0 = contado
	Lines              []LineInput
	Notes              string
}

// Request solicitud de ensamblado. Sus únicas implementaciones son
// FacturaRequest y CCFRequest.
type Request interface {
	DocumentType() string
	Input() DocumentInput
	recipient() (entity.Recipient, error)
	withSequence(seq int64) Request
}

// WithSequence devuelve una copia de req con el correlativo indicado.
func WithSequence(req Request, seq int64) Request {
	return req.withSequence(seq)
}

// FacturaRequest factura a consumidor final: el receptor es opcional.
type FacturaRequest struct {
	DocumentInput
	Recipient *entity.ConsumerRecipient
}

// CCFRequest comprobante de crédito fiscal: el receptor es obligatorio.
type CCFRequest struct {
	DocumentInput
	Recipient entity.TaxpayerRecipient
}

func (FacturaRequest) DocumentType() string   { return dte.DocumentTypeFactura }
func (r FacturaRequest) Input() DocumentInput { return r.DocumentInput }
func (CCFRequest) DocumentType() string       { return dte.DocumentTypeCCF }
func (r CCFRequest) Input() DocumentInput     { return r.DocumentInput }

func (r FacturaRequest) withSequence(seq int64) Request {
	r.Sequence = seq
	return r
}

func (r CCFRequest) withSequence(seq int64) Request {
	r.Sequence = seq
	return r
}

func (r FacturaRequest) recipient() (entity.Recipient, error) {
	if r.Recipient == nil {
		return nil, nil
	}
	if err := validateConsumer(r.Recipient); err != nil {
		return nil, err
	}
	cp := *r.Recipient
	return &cp, nil
}

func (r CCFRequest) recipient() (entity.Recipient, error) {
	if err := validateTaxpayer(&r.Recipient); err != nil {
		return nil, err
	}
	cp := r.Recipient
	return &cp, nil
}
