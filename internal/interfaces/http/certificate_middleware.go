package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-dte/internal/application/dto"
)

// certificateChecker es el contrato mínimo que necesita el middleware.
// Lo implementa *signer.Service.
type certificateChecker interface {
	IsCertificateLoaded() bool
	IsCertificateValid() bool
}

// RequireCertificate corta la petición con 412 Precondition Failed si no hay un
// certificado de firma cargado y vigente. Se coloca antes de las rutas que firman.
func RequireCertificate(checker certificateChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !checker.IsCertificateLoaded() {
			return c.Status(fiber.StatusPreconditionFailed).JSON(dto.ErrorResponse{
				Code:    "CERTIFICATE_NOT_LOADED",
				Message: "no hay certificado de firma cargado",
			})
		}
		if !checker.IsCertificateValid() {
			return c.Status(fiber.StatusPreconditionFailed).JSON(dto.ErrorResponse{
				Code:    "CERTIFICATE_EXPIRED",
				Message: "el certificado de firma no está vigente",
			})
		}
		return c.Next()
	}
}
