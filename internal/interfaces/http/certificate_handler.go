package http

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/application/dto"
	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/dte/signer"
)

// maxCertificateSize límite del archivo .p12 recibido.
const maxCertificateSize = 1 << 20

// CertificateHandler consulta y reemplazo del certificado de firma.
type CertificateHandler struct {
	creds *billing.CredentialsUseCase
}

// NewCertificateHandler construye el handler.
func NewCertificateHandler(creds *billing.CredentialsUseCase) *CertificateHandler {
	return &CertificateHandler{creds: creds}
}

// Get estado del certificado activo del tenant.
// GET /api/certificate
func (h *CertificateHandler) Get(c *fiber.Ctx) error {
	info, valid, err := h.creds.Status(GetTenantID(c))
	if err != nil {
		if errors.Is(err, domain.ErrCertificateNotLoaded) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "CERTIFICATE_NOT_LOADED", Message: "no hay certificado cargado"})
		}
		return respondError(c, err)
	}
	return c.JSON(certificateResponse(info, valid))
}

// Upload recibe un .p12 (multipart: file, password), lo guarda para el tenant
// y lo activa. Solo admin; 403 si el certificado activo es de otro tenant.
// POST /api/certificate
func (h *CertificateHandler) Upload(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c, "MISSING_TENANT", "token sin tenant")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "archivo requerido", Field: "file"})
	}
	if fh.Size > maxCertificateSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{Code: "FILE_TOO_LARGE", Message: "el certificado excede 1 MB", Field: "file"})
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxCertificateSize))
	if err != nil {
		return respondError(c, err)
	}

	info, err := h.creds.Store(c.UserContext(), tenantID, data, c.FormValue("password"))
	if err != nil {
		return respondError(c, err)
	}
	_, valid, _ := h.creds.Status(tenantID)
	return c.Status(fiber.StatusCreated).JSON(certificateResponse(info, valid))
}

func certificateResponse(info signer.CertificateInfo, valid bool) dto.CertificateResponse {
	return dto.CertificateResponse{
		Subject:      info.Subject,
		Issuer:       info.Issuer,
		SerialNumber: info.SerialNumber,
		TaxID:        info.TaxID,
		ValidFrom:    info.ValidFrom,
		ValidTo:      info.ValidTo,
		Algorithm:    info.Algorithm,
		Thumbprint:   info.Thumbprint,
		Valid:        valid,
	}
}
