package billing

import (
	"context"

	domaindte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/dte/signer"
)

// DocumentAssembler construye el TaxDocument a partir de la solicitud de negocio.
// Lo implementa *dte.Assembler.
type DocumentAssembler interface {
	Assemble(req domaindte.Request) (entity.TaxDocument, error)
}

// CertificateManager estado del certificado de firma activo.
// Lo implementa *signer.Service.
type CertificateManager interface {
	Install(c *signer.Certificate) signer.CertificateInfo
	LoadCertificate(data []byte, password string) (signer.CertificateInfo, error)
	IsCertificateLoaded() bool
	IsCertificateValid() bool
	CertificateInfo() (signer.CertificateInfo, error)
}

// SecretCipher cifra secretos en reposo. Lo implementa *secrets.EncryptionService.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
	IsEncrypted(value string) bool
}

// DocumentPDFGenerator genera la versión legible de un DTE firmado.
// Definido aquí para que la capa de aplicación no dependa de la implementación (maroto).
type DocumentPDFGenerator interface {
	GenerateDocumentPDF(ctx context.Context, doc *entity.TaxDocument) ([]byte, error)
}

// IssueTxRunner ejecuta fn en una transacción con los repositorios de
// correlativos y bitácora atados a ella. Si fn falla se hace rollback y el
// correlativo asignado no se consume.
type IssueTxRunner interface {
	RunIssue(ctx context.Context, fn func(
		sequences repository.SequenceRepository,
		documents repository.IssuedDocumentRepository,
	) error) error
}
