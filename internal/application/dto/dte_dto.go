package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domaindte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
)

// AddressRequest dirección según catálogos CAT-012 y CAT-013.
type AddressRequest struct {
	Department   string `json:"department"`
	Municipality string `json:"municipality"`
	Complement   string `json:"complement"`
}

// IssuerRequest datos del emisor.
type IssuerRequest struct {
	NIT               string         `json:"nit"`
	NRC               string         `json:"nrc"`
	Name              string         `json:"name"`
	ActivityCode      string         `json:"activity_code"`
	ActivityDesc      string         `json:"activity_desc"`
	TradeName         string         `json:"trade_name,omitempty"`
	EstablishmentType string         `json:"establishment_type"`
	Address           AddressRequest `json:"address"`
	Phone             string         `json:"phone"`
	Email             string         `json:"email"`
}

// LineRequest línea del documento. TaxCategory: gravado | exento | no_sujeto.
type LineRequest struct {
	Kind        int             `json:"kind"`
	Code        string          `json:"code,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitMeasure int             `json:"unit_measure"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxCategory string          `json:"tax_category"`
}

// DocumentRequest campos comunes a factura y crédito fiscal.
// Sequence = 0 pide al servidor el siguiente correlativo del establecimiento.
type DocumentRequest struct {
	Issuer             IssuerRequest `json:"issuer"`
	EstablishmentCode  string        `json:"establishment_code"`
	Sequence           int64         `json:"sequence,omitempty"`
	Environment        string        `json:"environment,omitempty"`
	OperationCondition int           `json:"operation_condition,omitempty"`
	Items              []LineRequest `json:"items"`
	Notes              string        `json:"notes,omitempty"`
}

// ConsumerRecipientRequest receptor opcional de una factura.
type ConsumerRecipientRequest struct {
	DocumentType   string          `json:"document_type,omitempty"`
	DocumentNumber string          `json:"document_number,omitempty"`
	Name           string          `json:"name,omitempty"`
	Address        *AddressRequest `json:"address,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Email          string          `json:"email,omitempty"`
}

// TaxpayerRecipientRequest receptor contribuyente (obligatorio en CCF).
type TaxpayerRecipientRequest struct {
	NIT          string         `json:"nit"`
	NRC          string         `json:"nrc"`
	Name         string         `json:"name"`
	ActivityCode string         `json:"activity_code"`
	ActivityDesc string         `json:"activity_desc"`
	TradeName    string         `json:"trade_name,omitempty"`
	Address      AddressRequest `json:"address"`
	Phone        string         `json:"phone,omitempty"`
	Email        string         `json:"email"`
}

// FacturaRequest body para POST /api/dte/facturas.
type FacturaRequest struct {
	DocumentRequest
	Recipient *ConsumerRecipientRequest `json:"recipient,omitempty"`
}

// CCFRequest body para POST /api/dte/ccf.
type CCFRequest struct {
	DocumentRequest
	Recipient TaxpayerRecipientRequest `json:"recipient"`
}

// ToDomain convierte el body en la solicitud de ensamblado.
// defaultEnv se usa cuando el body no indica ambiente.
func (r FacturaRequest) ToDomain(defaultEnv string) domaindte.FacturaRequest {
	out := domaindte.FacturaRequest{DocumentInput: r.DocumentRequest.toInput(defaultEnv)}
	if rc := r.Recipient; rc != nil {
		out.Recipient = &entity.ConsumerRecipient{
			DocumentType:   optional(rc.DocumentType),
			DocumentNumber: optional(rc.DocumentNumber),
			Name:           optional(rc.Name),
			Phone:          optional(rc.Phone),
			Email:          optional(rc.Email),
		}
		if rc.Address != nil {
			addr := rc.Address.toEntity()
			out.Recipient.Address = &addr
		}
	}
	return out
}

// ToDomain convierte el body en la solicitud de ensamblado.
func (r CCFRequest) ToDomain(defaultEnv string) domaindte.CCFRequest {
	rc := r.Recipient
	return domaindte.CCFRequest{
		DocumentInput: r.DocumentRequest.toInput(defaultEnv),
		Recipient: entity.TaxpayerRecipient{
			NIT:          rc.NIT,
			NRC:          rc.NRC,
			Name:         rc.Name,
			ActivityCode: rc.ActivityCode,
			ActivityDesc: rc.ActivityDesc,
			TradeName:    optional(rc.TradeName),
			Address:      rc.Address.toEntity(),
			Phone:        optional(rc.Phone),
			Email:        rc.Email,
		},
	}
}

func (r DocumentRequest) toInput(defaultEnv string) domaindte.DocumentInput {
	env := strings.TrimSpace(r.Environment)
	if env == "" {
		env = defaultEnv
	}
	lines := make([]domaindte.LineInput, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, domaindte.LineInput{
			Kind:        it.Kind,
			Code:        it.Code,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitMeasure: it.UnitMeasure,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Category:    domaindte.TaxCategory(strings.ToLower(strings.TrimSpace(it.TaxCategory))),
		})
	}
	is := r.Issuer
	return domaindte.DocumentInput{
		Issuer: entity.Issuer{
			NIT:               is.NIT,
			NRC:               is.NRC,
			Name:              is.Name,
			ActivityCode:      is.ActivityCode,
			ActivityDesc:      is.ActivityDesc,
			TradeName:         optional(is.TradeName),
			EstablishmentType: is.EstablishmentType,
			Address:           is.Address.toEntity(),
			Phone:             is.Phone,
			Email:             is.Email,
		},
		EstablishmentCode:  r.EstablishmentCode,
		Sequence:           r.Sequence,
		Environment:        env,
		OperationCondition: r.OperationCondition,
		Lines:              lines,
		Notes:              r.Notes,
	}
}

func (a AddressRequest) toEntity() entity.Address {
	return entity.Address{Department: a.Department, Municipality: a.Municipality, Complement: a.Complement}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// IssueDocumentResponse respuesta de emisión: el documento y su firma JWS.
type IssueDocumentResponse struct {
	Document entity.TaxDocument `json:"documento"`
	Token    string             `json:"firma"`
}

// TokenRequest body de verify, decode y pdf.
type TokenRequest struct {
	Token string `json:"token"`
}

// VerifyResponse resultado de POST /api/dte/verify.
type VerifyResponse struct {
	Valid   bool            `json:"valid"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeResponse resultado de POST /api/dte/decode. Verified siempre es false:
// decodificar no comprueba la firma.
type DecodeResponse struct {
	Header   any             `json:"header"`
	Payload  json.RawMessage `json:"payload"`
	Verified bool            `json:"verified"`
}

// IssuedDocumentResponse registro de bitácora para GET /api/dte/:code.
type IssuedDocumentResponse struct {
	GenerationCode string          `json:"generation_code"`
	ControlNumber  string          `json:"control_number"`
	DocumentType   string          `json:"document_type"`
	TotalPayable   decimal.Decimal `json:"total_pagar"`
	Token          string          `json:"firma"`
	EmittedAt      time.Time       `json:"emitted_at"`
}

// NewIssuedDocumentResponse mapea la entidad a la respuesta HTTP.
func NewIssuedDocumentResponse(d *entity.IssuedDocument) IssuedDocumentResponse {
	return IssuedDocumentResponse{
		GenerationCode: d.GenerationCode,
		ControlNumber:  d.ControlNumber,
		DocumentType:   d.DocumentType,
		TotalPayable:   d.TotalPayable,
		Token:          d.SignedToken,
		EmittedAt:      d.EmittedAt,
	}
}

// CertificateResponse estado del certificado activo.
type CertificateResponse struct {
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serial_number"`
	TaxID        string    `json:"nit,omitempty"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidTo      time.Time `json:"valid_to"`
	Algorithm    string    `json:"algorithm"`
	Thumbprint   string    `json:"thumbprint_sha256"`
	Valid        bool      `json:"valid"`
}
