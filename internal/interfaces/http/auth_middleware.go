package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-dte/internal/application/dto"
	"github.com/jhoicas/facturacion-dte/pkg/jwt"
)

// LocalIdentity clave de c.Locals con la jwt.Identity del llamador.
const LocalIdentity = "identity"

// AuthMiddleware valida el Bearer Token y deja la identidad en c.Locals.
// Todas las rutas de DTE operan sobre un tenant, así que un token sin
// tenant_id se rechaza aquí.
func AuthMiddleware(jwtSecret, issuer string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "MISSING_TOKEN", "Authorization header requerido")
		}
		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return unauthorized(c, "INVALID_TOKEN", "formato: Bearer <token>")
		}
		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			return unauthorized(c, "MISSING_TOKEN", "token vacío")
		}
		id, err := jwt.Parse(jwtSecret, issuer, tokenString)
		if err != nil {
			return unauthorized(c, "INVALID_TOKEN", "token inválido o expirado")
		}
		if id.TenantID == "" {
			return unauthorized(c, "MISSING_TENANT", "el token no incluye tenant")
		}
		c.Locals(LocalIdentity, id)
		return c.Next()
	}
}

// RequireRole autoriza solo a los roles indicados. Va después de AuthMiddleware.
//   - 401 MISSING_ROLE: el token no trae rol.
//   - 403 FORBIDDEN: el rol no está permitido.
func RequireRole(allowed ...string) fiber.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return unauthorized(c, "MISSING_ROLE", "el token no incluye rol")
		}
		if _, ok := set[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "el rol '" + role + "' no tiene acceso a este recurso"})
		}
		return c.Next()
	}
}

// GetIdentity identidad del llamador; vacía si la ruta no pasó por AuthMiddleware.
func GetIdentity(c *fiber.Ctx) jwt.Identity {
	id, _ := c.Locals(LocalIdentity).(jwt.Identity)
	return id
}

func GetUserID(c *fiber.Ctx) string   { return GetIdentity(c).UserID }
func GetTenantID(c *fiber.Ctx) string { return GetIdentity(c).TenantID }
func GetRole(c *fiber.Ctx) string     { return GetIdentity(c).Role }
