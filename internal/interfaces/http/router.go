package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/pkg/dte"
	"github.com/jhoicas/facturacion-dte/pkg/jwt"
)

// CertificateStatus lo que el router necesita del firmador para proteger las rutas de emisión.
type CertificateStatus interface {
	certificateChecker
	dte.Verifier
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	IssueUC       *billing.IssueDocumentUseCase
	CredentialsUC *billing.CredentialsUseCase
	PDFUC         *billing.PDFUseCase
	Signer        CertificateStatus
	Environment   string
	JWTSecret     string
	JWTIssuer     string // vacío: no se valida el emisor del token
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"certificate": deps.Signer.IsCertificateLoaded(),
		})
	})

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	// DTE
	dteHandler := NewDTEHandler(deps.IssueUC, deps.Signer, deps.PDFUC, deps.Environment)
	docs := protected.Group("/dte")
	emit := []fiber.Handler{RequireRole(jwt.RoleAdmin, jwt.RoleEmisor), RequireCertificate(deps.Signer)}
	docs.Post("/facturas", append(emit, dteHandler.CreateFactura)...)
	docs.Post("/ccf", append(emit, dteHandler.CreateCCF)...)
	docs.Post("/verify", dteHandler.Verify)
	docs.Post("/decode", dteHandler.Decode)
	docs.Post("/pdf", dteHandler.PDF)
	docs.Get("/:code", dteHandler.GetByCode)

	// Certificado de firma
	certHandler := NewCertificateHandler(deps.CredentialsUC)
	cert := protected.Group("/certificate")
	cert.Get("/", certHandler.Get)
	cert.Post("/", RequireRole(jwt.RoleAdmin), certHandler.Upload)
}
