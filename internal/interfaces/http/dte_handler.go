package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/application/dto"
	domaindte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/dte/signer"
	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

// DTEHandler emisión, verificación y versión legible de DTE (protegido).
type DTEHandler struct {
	issue      *billing.IssueDocumentUseCase
	verifier   dte.Verifier
	pdf        *billing.PDFUseCase
	defaultEnv string
}

// NewDTEHandler construye el handler. defaultEnv se aplica cuando el body no trae ambiente.
func NewDTEHandler(issue *billing.IssueDocumentUseCase, verifier dte.Verifier, pdf *billing.PDFUseCase, defaultEnv string) *DTEHandler {
	return &DTEHandler{issue: issue, verifier: verifier, pdf: pdf, defaultEnv: defaultEnv}
}

// CreateFactura ensambla y firma una factura (tipo 01).
// POST /api/dte/facturas
func (h *DTEHandler) CreateFactura(c *fiber.Ctx) error {
	var in dto.FacturaRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.emit(c, in.ToDomain(h.defaultEnv))
}

// CreateCCF ensambla y firma un comprobante de crédito fiscal (tipo 03).
// POST /api/dte/ccf
func (h *DTEHandler) CreateCCF(c *fiber.Ctx) error {
	var in dto.CCFRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.emit(c, in.ToDomain(h.defaultEnv))
}

func (h *DTEHandler) emit(c *fiber.Ctx, req domaindte.Request) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c, "MISSING_TENANT", "token sin tenant")
	}
	out, err := h.issue.Issue(c.UserContext(), tenantID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IssueDocumentResponse{
		Document: out.Document,
		Token:    out.SignedToken,
	})
}

// Verify comprueba la firma de un token con el certificado activo.
// Una firma que no coincide responde 200 con valid=false.
// POST /api/dte/verify
func (h *DTEHandler) Verify(c *fiber.Ctx) error {
	token, ok := h.token(c)
	if !ok {
		return invalidBody(c)
	}
	res, err := h.verifier.Verify(token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.VerifyResponse{Valid: res.Valid, Payload: res.Payload})
}

// Decode muestra header y payload sin verificar la firma (solo diagnóstico).
// POST /api/dte/decode
func (h *DTEHandler) Decode(c *fiber.Ctx) error {
	token, ok := h.token(c)
	if !ok {
		return invalidBody(c)
	}
	header, err := signer.DecodeHeader(token)
	if err != nil {
		return respondError(c, err)
	}
	payload, err := signer.DecodePayload(token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DecodeResponse{Header: header, Payload: payload, Verified: false})
}

// PDF genera la versión legible de un DTE firmado.
// POST /api/dte/pdf
func (h *DTEHandler) PDF(c *fiber.Ctx) error {
	token, ok := h.token(c)
	if !ok {
		return invalidBody(c)
	}
	pdfBytes, filename, err := h.pdf.Render(c.UserContext(), token)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

// GetByCode devuelve un documento de la bitácora por su código de generación.
// GET /api/dte/:code
func (h *DTEHandler) GetByCode(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c, "MISSING_TENANT", "token sin tenant")
	}
	doc, err := h.issue.Get(c.UserContext(), tenantID, c.Params("code"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewIssuedDocumentResponse(doc))
}

func (h *DTEHandler) token(c *fiber.Ctx) (string, bool) {
	var in dto.TokenRequest
	if err := c.BodyParser(&in); err != nil {
		return "", false
	}
	in.Token = strings.TrimSpace(in.Token)
	return in.Token, in.Token != ""
}
