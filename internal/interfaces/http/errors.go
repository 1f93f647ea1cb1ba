package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/facturacion-dte/internal/application/dto"
	"github.com/jhoicas/facturacion-dte/internal/domain"
)

// respondError traduce los errores de dominio a status HTTP.
// Los errores no reconocidos se registran y se responden sin detalle.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: err.Error(),
			Field:   domain.ValidationField(err),
		})
	case errors.Is(err, domain.ErrMalformedToken):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MALFORMED_TOKEN", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()})
	case errors.Is(err, domain.ErrPrecondition), errors.Is(err, domain.ErrCertificateNotLoaded):
		return c.Status(fiber.StatusPreconditionFailed).JSON(dto.ErrorResponse{Code: "CERTIFICATE_REQUIRED", Message: err.Error()})
	case errors.Is(err, domain.ErrCertificate):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_CERTIFICATE", Message: "certificado o contraseña inválidos"})
	case errors.Is(err, domain.ErrInvalidSignature):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "INVALID_SIGNATURE", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"})
	}
	log.Error().Err(err).Str("ruta", c.Path()).Msg("error no controlado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func unauthorized(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
