// Package pdf genera la versión legible de un DTE firmado.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + NIT/NRC    │  Tipo de DTE + Fecha/Hora    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  IDENTIFICACIÓN: N° control / Código de generación          │
//	│  EMISOR: Dirección / Tel / Correo                           │
//	│  RECEPTOR: Nombre + documento + contacto                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Descuento | Venta      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Gravado / Exento / No sujeto / IVA / TOTAL         │
//	│  TOTAL EN LETRAS                                            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR de consulta pública + leyenda                   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appbilling "github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

var _ appbilling.DocumentPDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 56, Blue: 147}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var documentTitles = map[string]string{
	dte.DocumentTypeFactura: "FACTURA",
	dte.DocumentTypeCCF:     "COMPROBANTE DE CRÉDITO FISCAL",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.DocumentPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	consultURL string
}

// NewMarotoPDFGenerator construye el generador. consultURL es la página de
// consulta pública a la que apunta el QR; vacía omite el QR.
func NewMarotoPDFGenerator(consultURL string) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{consultURL: consultURL}
}

// GenerateDocumentPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateDocumentPDF(_ context.Context, doc *entity.TaxDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("pdf: documento nulo")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Documento Tributario Electrónico", true).
		WithAuthor(doc.Issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(identificationRow(doc.Identification))
	m.AddRows(issuerRow(doc.Issuer))
	m.AddRows(recipientRow(doc.Recipient))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableItemRows(doc.LineItems)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc.Summary))
	m.AddRows(wordsRow(doc.Summary.TotalInWords))
	if doc.Extension != nil && doc.Extension.Notes != nil {
		m.AddRows(notesRow(*doc.Extension.Notes))
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(ConsultURL(g.consultURL, doc.Identification))...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ConsultURL enlace de consulta pública del documento:
// base?ambiente=..&codGen=..&fechaEmi=..  Devuelve "" si base está vacía.
func ConsultURL(base string, id entity.Identification) string {
	if strings.TrimSpace(base) == "" {
		return ""
	}
	q := url.Values{}
	q.Set("ambiente", id.Environment)
	q.Set("codGen", id.GenerationCode)
	q.Set("fechaEmi", id.EmissionDate)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(doc *entity.TaxDocument) core.Row {
	title := documentTitles[doc.Identification.DocumentType]
	if title == "" {
		title = "DTE " + doc.Identification.DocumentType
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(doc.Issuer.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("NIT: "+doc.Issuer.NIT+"   NRC: "+doc.Issuer.NRC, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("DOCUMENTO TRIBUTARIO ELECTRÓNICO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 6,
			}),
			text.New("Emisión: "+doc.Identification.EmissionDate+" "+doc.Identification.EmissionTime, props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func identificationRow(id entity.Identification) core.Row {
	env := "Pruebas"
	if id.Environment == dte.EnvironmentProduction {
		env = "Producción"
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("Número de control: "+id.ControlNumber, props.Text{Style: fontstyle.Bold, Size: 8, Top: 1}),
			text.New("Código de generación: "+id.GenerationCode, props.Text{Size: 8, Top: 5}),
			text.New(fmt.Sprintf("Ambiente: %s   |   Versión: %d   |   Moneda: %s", env, id.Version, id.Currency),
				props.Text{Size: 8, Top: 9, Color: colorGray}),
		),
	)
}

func issuerRow(is entity.Issuer) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Dirección: %s   |   Tel: %s   |   Correo: %s",
				nonEmpty(is.Address.Complement, "-"),
				nonEmpty(is.Phone, "-"),
				nonEmpty(is.Email, "-"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func recipientRow(r entity.Recipient) core.Row {
	name, ident, contact := "CONSUMIDOR FINAL", "", ""
	switch v := r.(type) {
	case *entity.TaxpayerRecipient:
		name = v.Name
		ident = "NIT: " + v.NIT + "   NRC: " + v.NRC
		contact = "Correo: " + v.Email + "   |   Dirección: " + nonEmpty(v.Address.Complement, "-")
	case *entity.ConsumerRecipient:
		name = nonEmpty(deref(v.Name), name)
		if num := deref(v.DocumentNumber); num != "" {
			ident = "Documento: " + num
		}
		contact = "Correo: " + nonEmpty(deref(v.Email), "-") + "   |   Tel: " + nonEmpty(deref(v.Phone), "-")
	}
	return row.New(16).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 5}),
			text.New(strings.TrimSpace(ident+"   "+contact), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Descuento", 2, align.Right),
		h("Venta", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func tableItemRows(items []entity.LineItem) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(
				it.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				it.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"$"+formatMoney(it.UnitPrice.Decimal),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(2).Add(text.New(
				"$"+formatMoney(it.Discount.Decimal),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(2).Add(text.New(
				"$"+formatMoney(lineSale(it)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return rows
}

func totalsRow(s entity.DocumentSummary) core.Row {
	label := func(v string) core.Component {
		return text.New(v, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(v decimal.Decimal) core.Component {
		return text.New("$"+formatMoney(v), props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	labels := col.New(3).Add(
		label("Ventas gravadas:"),
		label("Ventas exentas:"),
		label("Ventas no sujetas:"),
		label("IVA 13%:"),
		text.New("TOTAL A PAGAR:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2,
		}),
	)
	values := col.New(3).Add(
		value(s.TotalTaxed.Decimal),
		value(s.TotalExempt.Decimal),
		value(s.TotalNotSubject.Decimal),
		value(s.TaxAmount.Decimal),
		text.New("$"+formatMoney(s.TotalPayable.Decimal), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1,
		}),
	)
	return row.New(30).Add(col.New(6), labels, values)
}

func wordsRow(words string) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New("SON: "+words, props.Text{Style: fontstyle.Bold, Size: 8, Top: 2}),
	))
}

func notesRow(notes string) core.Row {
	return row.New(10).Add(col.New(12).Add(
		text.New("Observaciones: "+notes, props.Text{Size: 8, Top: 2, Color: colorGray}),
	))
}

func footerRows(qr string) []core.Row {
	legend := "Versión legible del Documento Tributario Electrónico. " +
		"La validez del documento la determina su firma electrónica."
	if qr == "" {
		return []core.Row{row.New(10).Add(col.New(12).Add(
			text.New(legend, props.Text{Size: 7, Align: align.Center, Color: colorGray, Top: 2}),
		))}
	}
	return []core.Row{row.New(45).Add(
		col.New(4).Add(code.NewQr(qr, props.Rect{Percent: 95, Center: true})),
		col.New(8).Add(
			text.New("Escanea el código QR para consultar\neste documento en el portal del Ministerio de Hacienda.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New(legend, props.Text{Size: 7, Top: 22, Left: 3, Color: colorGray}),
		),
	)}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func lineSale(it entity.LineItem) decimal.Decimal {
	return it.TaxedSale.Add(it.ExemptSale.Decimal).Add(it.NotSubjectSale.Decimal)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// formatMoney formatea a 2 decimales con separador de miles.
// Ej: 1234567.5 → "1,234,567.50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "." + frac
}
