package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/domain"
	domaindte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/dte/signer"
	infrapdf "github.com/jhoicas/facturacion-dte/internal/infrastructure/pdf"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/postgres"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/secrets"
	httpRouter "github.com/jhoicas/facturacion-dte/internal/interfaces/http"
	"github.com/jhoicas/facturacion-dte/pkg/config"
	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ambiente_dte", cfg.DTE.Environment).
		Msg("iniciando aplicación")

	cipher, err := secrets.NewEncryptionService(cfg.Crypto.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("llave maestra")
	}
	if cipher.Ephemeral() {
		log.Warn().Msg("DTE_MASTER_KEY no definida: se usa una llave efímera, los secretos cifrados no sobreviven un reinicio")
	}

	ctx := context.Background()

	// Persistencia opcional: sin DB no hay correlativos automáticos ni bitácora.
	var (
		credentials repository.SigningCredentialRepository
		sequences   repository.SequenceRepository
		documents   repository.IssuedDocumentRepository
		txRunner    billing.IssueTxRunner
	)
	if cfg.DB.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		credentials = postgres.NewSigningCredentialRepository(pool)
		sequences = postgres.NewSequenceRepository(pool)
		documents = postgres.NewIssuedDocumentRepository(pool)
		txRunner = postgres.NewTxRunner(pool)
	} else {
		log.Warn().Msg("DB_ENABLED=false: sin bitácora ni correlativos automáticos")
	}

	signerSvc := signer.NewService(nil)
	defer signerSvc.Close()
	// Un solo certificado activo: queda a nombre del tenant que lo carga.
	owner := billing.NewCertificateOwner(cfg.DTE.TenantID)

	assembler := domaindte.NewAssembler(domaindte.AssemblerConfig{TaxRate: cfg.DTE.Rate()})
	issueUC := billing.NewIssueDocumentUseCase(assembler, signerSvc, sequences, documents, log.WithComponent("emision")).
		WithCertificateOwner(owner)
	if txRunner != nil {
		issueUC.WithTxRunner(txRunner)
	}
	credentialsUC := billing.NewCredentialsUseCase(credentials, cipher, signerSvc, log.WithComponent("credenciales")).
		WithCertificateOwner(owner)
	pdfUC := billing.NewPDFUseCase(signerSvc, infrapdf.NewMarotoPDFGenerator(cfg.DTE.ConsultURL))

	loadStartupCertificate(ctx, cfg, credentialsUC, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    2 * 1024 * 1024,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		IssueUC:       issueUC,
		CredentialsUC: credentialsUC,
		PDFUC:         pdfUC,
		Signer:        signerSvc,
		Environment:   cfg.DTE.Environment,
		JWTSecret:     cfg.JWT.Secret,
		JWTIssuer:     cfg.JWT.Issuer,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// loadStartupCertificate activa el certificado desde archivo o desde la DB.
// Un fallo no detiene el servidor: las rutas de emisión responden 412 hasta
// que se cargue uno con POST /api/certificate.
func loadStartupCertificate(ctx context.Context, cfg *config.Config, uc *billing.CredentialsUseCase, log *logger.Logger) {
	switch {
	case cfg.DTE.CertPath != "":
		if _, err := uc.LoadFromFile(cfg.DTE.CertPath, cfg.DTE.CertKeyPath, cfg.DTE.CertPassword); err != nil {
			log.Error().Err(err).Str("ruta", cfg.DTE.CertPath).Msg("no se pudo cargar el certificado de firma")
		}
	case cfg.DTE.TenantID != "":
		_, err := uc.LoadForTenant(ctx, cfg.DTE.TenantID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("tenant_id", cfg.DTE.TenantID).Msg("el tenant no tiene certificado registrado")
		} else if err != nil {
			log.Error().Err(err).Str("tenant_id", cfg.DTE.TenantID).Msg("no se pudo cargar el certificado de firma")
		}
	default:
		log.Warn().Msg("sin certificado de firma: cárguelo con POST /api/certificate")
	}
}
