package pdf_test

import (
	"bytes"
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaindte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/pdf"
)

func assembled(t *testing.T) entity.TaxDocument {
	t.Helper()
	d := decimal.RequireFromString
	asm := domaindte.NewAssembler(domaindte.AssemblerConfig{
		Clock: func() time.Time { return time.Date(2027, 6, 1, 18, 30, 0, 0, time.UTC) },
	})
	doc, err := asm.Assemble(domaindte.FacturaRequest{
		DocumentInput: domaindte.DocumentInput{
			Issuer:            entity.Issuer{NIT: "06141234567890", NRC: "1234567", Name: "EMPRESA DE PRUEBAS SA DE CV"},
			EstablishmentCode: "0001",
			Sequence:          42,
			Environment:       "00",
			Notes:             "Entrega en bodega central",
			Lines: []domaindte.LineInput{
				{Description: "Servicio mensual", Quantity: d("2"), UnitPrice: d("1500.55"), Category: domaindte.TaxCategoryTaxed},
				{Description: "Libro", Quantity: d("1"), UnitPrice: d("12.25"), Category: domaindte.TaxCategoryExempt},
			},
		},
	})
	require.NoError(t, err)
	return doc
}

func TestGenerateDocumentPDF(t *testing.T) {
	doc := assembled(t)
	gen := pdf.NewMarotoPDFGenerator("https://admin.factura.gob.sv/consultaPublica")

	out, err := gen.GenerateDocumentPDF(context.Background(), &doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "la salida debe ser un PDF")
	assert.Greater(t, len(out), 1000)
}

func TestGenerateDocumentPDF_SinQR(t *testing.T) {
	doc := assembled(t)
	doc.Recipient = &entity.TaxpayerRecipient{NIT: "06149876543210", NRC: "765432", Name: "CLIENTE SA DE CV"}

	out, err := pdf.NewMarotoPDFGenerator("").GenerateDocumentPDF(context.Background(), &doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateDocumentPDF_Nil(t *testing.T) {
	_, err := pdf.NewMarotoPDFGenerator("").GenerateDocumentPDF(context.Background(), nil)
	assert.Error(t, err)
}

func TestConsultURL(t *testing.T) {
	id := entity.Identification{
		Environment:    "01",
		GenerationCode: "8F2A4C1E-3B6D-4E7A-9C0B-1D2E3F4A5B6C",
		EmissionDate:   "2027-06-01",
	}
	raw := pdf.ConsultURL("https://admin.factura.gob.sv/consultaPublica", id)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/consultaPublica", u.Path)
	assert.Equal(t, "01", u.Query().Get("ambiente"))
	assert.Equal(t, id.GenerationCode, u.Query().Get("codGen"))
	assert.Equal(t, "2027-06-01", u.Query().Get("fechaEmi"))

	withQuery := pdf.ConsultURL("https://consulta.example/dte?lang=es", id)
	assert.Contains(t, withQuery, "?lang=es&ambiente=01")

	assert.Empty(t, pdf.ConsultURL("  ", id), "sin URL base no hay QR")
}
