package entity

import (
	"encoding/json"
	"fmt"

	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

// TaxDocument Documento Tributario Electrónico ensamblado, previo a la firma.
// Las etiquetas JSON siguen el esquema del Ministerio de Hacienda.
// Se construye una sola vez por emisión y no se modifica después del ensamblado.
type TaxDocument struct {
	Identification Identification  `json:"identificacion"`
	Issuer         Issuer          `json:"emisor"`
	Recipient      Recipient       `json:"receptor"` // nil: factura a consumidor final sin identificar
	LineItems      []LineItem      `json:"cuerpoDocumento"`
	Summary        DocumentSummary `json:"resumen"`
	Extension      *Extension      `json:"extension"`
}

// Identification bloque "identificacion".
type Identification struct {
	Version        int    `json:"version"`
	Environment    string `json:"ambiente"`
	DocumentType   string `json:"tipoDte"`
	ControlNumber  string `json:"numeroControl"`
	GenerationCode string `json:"codigoGeneracion"`
	ModelType      int    `json:"tipoModelo"`
	OperationType  int    `json:"tipoOperacion"`
	EmissionDate   string `json:"fecEmi"` // 2006-01-02
	EmissionTime   string `json:"horEmi"` // 15:04:05
	Currency       string `json:"tipoMoneda"`
}

// Address dirección según catálogos de departamento y municipio.
type Address struct {
	Department   string `json:"departamento"`
	Municipality string `json:"municipio"`
	Complement   string `json:"complemento"`
}

// Issuer bloque "emisor".
type Issuer struct {
	NIT               string  `json:"nit"`
	NRC               string  `json:"nrc"`
	Name              string  `json:"nombre"`
	ActivityCode      string  `json:"codActividad"`
	ActivityDesc      string  `json:"descActividad"`
	TradeName         *string `json:"nombreComercial"`
	EstablishmentType string  `json:"tipoEstablecimiento"`
	Address           Address `json:"direccion"`
	Phone             string  `json:"telefono"`
	Email             string  `json:"correo"`
}

// Recipient receptor del documento. Variantes: *ConsumerRecipient (factura,
// opcional) y *TaxpayerRecipient (crédito fiscal, obligatorio).
type Recipient interface {
	recipient()
}

// ConsumerRecipient receptor de una factura a consumidor final.
type ConsumerRecipient struct {
	DocumentType   *string  `json:"tipoDocumento"`
	DocumentNumber *string  `json:"numDocumento"`
	Name           *string  `json:"nombre"`
	Address        *Address `json:"direccion"`
	Phone          *string  `json:"telefono"`
	Email          *string  `json:"correo"`
}

// TaxpayerRecipient receptor contribuyente de un comprobante de crédito fiscal.
type TaxpayerRecipient struct {
	NIT          string  `json:"nit"`
	NRC          string  `json:"nrc"`
	Name         string  `json:"nombre"`
	ActivityCode string  `json:"codActividad"`
	ActivityDesc string  `json:"descActividad"`
	TradeName    *string `json:"nombreComercial"`
	Address      Address `json:"direccion"`
	Phone        *string `json:"telefono"`
	Email        string  `json:"correo"`
}

func (*ConsumerRecipient) recipient() {}
func (*TaxpayerRecipient) recipient() {}

// LineItem ítem de "cuerpoDocumento". Exactamente uno de NotSubjectSale,
// ExemptSale o TaxedSale es distinto de cero y coincide con Subtotal.
type LineItem struct {
	Number         int      `json:"numItem"`
	Kind           int      `json:"tipoItem"`
	Code           *string  `json:"codigo"`
	Description    string   `json:"descripcion"`
	Quantity       Amount   `json:"cantidad"`
	UnitMeasure    int      `json:"uniMedida"`
	UnitPrice      Amount   `json:"precioUni"`
	Discount       Amount   `json:"montoDescu"`
	NotSubjectSale Amount   `json:"ventaNoSuj"`
	ExemptSale     Amount   `json:"ventaExenta"`
	TaxedSale      Amount   `json:"ventaGravada"`
	Taxes          []string `json:"tributos"`
	Subtotal       Amount   `json:"-"`
}

// TaxLine resumen de un tributo aplicado.
type TaxLine struct {
	Code        string `json:"codigo"`
	Description string `json:"descripcion"`
	Value       Amount `json:"valor"`
}

// DocumentSummary bloque "resumen". Derivado únicamente de LineItems.
type DocumentSummary struct {
	TotalNotSubject    Amount    `json:"totalNoSuj"`
	TotalExempt        Amount    `json:"totalExenta"`
	TotalTaxed         Amount    `json:"totalGravada"`
	SalesSubtotal      Amount    `json:"subTotalVentas"`
	TotalDiscount      Amount    `json:"totalDescu"`
	Taxes              []TaxLine `json:"tributos"`
	Subtotal           Amount    `json:"subTotal"`
	TaxAmount          Amount    `json:"totalIva"`
	OperationTotal     Amount    `json:"montoTotalOperacion"`
	TotalPayable       Amount    `json:"totalPagar"`
	TotalInWords       string    `json:"totalLetras"`
	OperationCondition int       `json:"condicionOperacion"`
}

// Extension bloque "extension" (observaciones libres).
type Extension struct {
	Notes *string `json:"observaciones"`
}

// UnmarshalJSON reconstruye la variante de receptor según identificacion.tipoDte.
func (d *TaxDocument) UnmarshalJSON(b []byte) error {
	type plain TaxDocument
	var raw struct {
		plain
		Recipient json.RawMessage `json:"receptor"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*d = TaxDocument(raw.plain)
	d.Recipient = nil
	if len(raw.Recipient) == 0 || string(raw.Recipient) == "null" {
		return nil
	}
	switch d.Identification.DocumentType {
	case dte.DocumentTypeCCF:
		var r TaxpayerRecipient
		if err := json.Unmarshal(raw.Recipient, &r); err != nil {
			return fmt.Errorf("receptor: %w", err)
		}
		d.Recipient = &r
	default:
		var r ConsumerRecipient
		if err := json.Unmarshal(raw.Recipient, &r); err != nil {
			return fmt.Errorf("receptor: %w", err)
		}
		d.Recipient = &r
	}
	return nil
}
