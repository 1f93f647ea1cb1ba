package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/dte/signer"
	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

// CredentialsUseCase administra el certificado de firma: lo valida, guarda la
// contraseña cifrada y lo activa en el firmador.
type CredentialsUseCase struct {
	repo   repository.SigningCredentialRepository // nil: sin persistencia
	cipher SecretCipher
	certs  CertificateManager
	owner  *CertificateOwner
	log    *logger.Logger
	now    func() time.Time
}

// NewCredentialsUseCase construye el caso de uso. repo puede ser nil.
func NewCredentialsUseCase(
	repo repository.SigningCredentialRepository,
	cipher SecretCipher,
	certs CertificateManager,
	log *logger.Logger,
) *CredentialsUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &CredentialsUseCase{
		repo:   repo,
		cipher: cipher,
		certs:  certs,
		owner:  NewCertificateOwner(""),
		log:    log,
		now:    time.Now,
	}
}

// WithCertificateOwner comparte el registro de dueño con la emisión.
func (uc *CredentialsUseCase) WithCertificateOwner(o *CertificateOwner) *CredentialsUseCase {
	if o != nil {
		uc.owner = o
	}
	return uc
}

// Store valida el contenedor con su contraseña, la cifra, persiste la
// credencial del tenant y la deja como certificado activo.
// Retorna domain.ErrForbidden si el certificado activo es de otro tenant.
func (uc *CredentialsUseCase) Store(ctx context.Context, tenantID string, p12 []byte, password string) (signer.CertificateInfo, error) {
	if tenantID == "" {
		return signer.CertificateInfo{}, fmt.Errorf("%w: tenant requerido", domain.ErrInvalidInput)
	}
	cert, err := signer.ParsePKCS12(p12, password)
	if err != nil {
		return signer.CertificateInfo{}, err
	}
	info := cert.Info()

	err = uc.owner.Activate(tenantID, func() error {
		if uc.repo != nil {
			enc, err := uc.cipher.Encrypt(password)
			if err != nil {
				return fmt.Errorf("credenciales: cifrar contraseña: %w", err)
			}
			cred := &entity.SigningCredential{
				TenantID:     tenantID,
				Certificate:  p12,
				PasswordEnc:  enc,
				Subject:      info.Subject,
				SerialNumber: info.SerialNumber,
				ValidTo:      info.ValidTo,
				UpdatedAt:    uc.now().UTC(),
			}
			if err := uc.repo.Upsert(ctx, cred); err != nil {
				return fmt.Errorf("credenciales: guardar: %w", err)
			}
		}
		uc.certs.Install(cert)
		return nil
	})
	if err != nil {
		uc.log.WithTenant(tenantID).Warn().Err(err).Msg("certificado de firma rechazado")
		return signer.CertificateInfo{}, err
	}

	uc.log.WithTenant(tenantID).Info().
		Str("serial", info.SerialNumber).
		Time("vence", info.ValidTo).
		Msg("certificado de firma actualizado")
	return info, nil
}

// LoadForTenant activa el certificado guardado del tenant.
// Retorna domain.ErrNotFound si el tenant no tiene credencial.
func (uc *CredentialsUseCase) LoadForTenant(ctx context.Context, tenantID string) (signer.CertificateInfo, error) {
	if uc.repo == nil {
		return signer.CertificateInfo{}, domain.ErrNotFound
	}
	cred, err := uc.repo.GetByTenant(ctx, tenantID)
	if err != nil {
		return signer.CertificateInfo{}, fmt.Errorf("credenciales: obtener: %w", err)
	}
	if cred == nil {
		return signer.CertificateInfo{}, domain.ErrNotFound
	}
	password, err := uc.cipher.Decrypt(cred.PasswordEnc)
	if err != nil {
		return signer.CertificateInfo{}, fmt.Errorf("credenciales: %w", err)
	}
	var info signer.CertificateInfo
	err = uc.owner.Activate(tenantID, func() error {
		info, err = uc.certs.LoadCertificate(cred.Certificate, password)
		return err
	})
	if err != nil {
		return signer.CertificateInfo{}, err
	}
	uc.logLoaded(tenantID, info, "base de datos")
	return info, nil
}

// LoadFromFile activa un certificado desde disco (.p12, o par PEM si keyPath
// no está vacío). Si password parece un EncryptedBlob se descifra primero;
// un fallo al descifrarlo es un error, no se reintenta en claro.
// El certificado queda a nombre del tenant fijo del registro de dueño.
func (uc *CredentialsUseCase) LoadFromFile(certPath, keyPath, password string) (signer.CertificateInfo, error) {
	if uc.cipher.IsEncrypted(password) {
		plain, err := uc.cipher.Decrypt(password)
		if err != nil {
			return signer.CertificateInfo{}, fmt.Errorf("credenciales: contraseña del certificado: %w", err)
		}
		password = plain
	}
	cert, err := signer.LoadFiles(certPath, keyPath, password)
	if err != nil {
		return signer.CertificateInfo{}, err
	}
	tenantID := uc.owner.fixed
	var info signer.CertificateInfo
	if err := uc.owner.Activate(tenantID, func() error {
		info = uc.certs.Install(cert)
		return nil
	}); err != nil {
		return signer.CertificateInfo{}, err
	}
	uc.logLoaded(tenantID, info, certPath)
	return info, nil
}

// Status información del certificado activo y su vigencia. Para un tenant
// que no es dueño del certificado activo responde domain.ErrCertificateNotLoaded.
func (uc *CredentialsUseCase) Status(tenantID string) (signer.CertificateInfo, bool, error) {
	if !uc.owner.Owns(tenantID) {
		return signer.CertificateInfo{}, false, domain.ErrCertificateNotLoaded
	}
	info, err := uc.certs.CertificateInfo()
	if err != nil {
		return signer.CertificateInfo{}, false, err
	}
	return info, uc.certs.IsCertificateValid(), nil
}

func (uc *CredentialsUseCase) logLoaded(tenantID string, info signer.CertificateInfo, source string) {
	ev := uc.log.Info()
	if !uc.certs.IsCertificateValid() {
		ev = uc.log.Warn()
	}
	ev.Str("tenant_id", tenantID).
		Str("origen", source).
		Str("serial", info.SerialNumber).
		Str("algoritmo", info.Algorithm).
		Time("vence", info.ValidTo).
		Bool("vigente", uc.certs.IsCertificateValid()).
		Msg("certificado de firma cargado")
}
