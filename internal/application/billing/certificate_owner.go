package billing

import (
	"fmt"
	"sync"

	"github.com/jhoicas/facturacion-dte/internal/domain"
)

// CertificateOwner asocia el único certificado activo del firmador con el
// tenant que lo cargó. Solo ese tenant puede emitir con él o reemplazarlo.
//
// fixed (DTE_TENANT_ID) restringe además qué tenant puede cargar certificados.
// Un certificado cargado desde archivo sin DTE_TENANT_ID es del despliegue:
// lo usan todos los tenants y no se reemplaza por API.
type CertificateOwner struct {
	mu     sync.RWMutex
	fixed  string
	tenant string
	held   bool
}

// NewCertificateOwner crea el registro. fixed vacío admite cualquier tenant
// mientras no haya certificado activo.
func NewCertificateOwner(fixed string) *CertificateOwner {
	return &CertificateOwner{fixed: fixed}
}

// Activate ejecuta install con el registro bloqueado y, si tiene éxito, deja
// a tenantID como dueño del certificado activo.
// Retorna domain.ErrForbidden si tenantID no puede reemplazar el certificado.
func (o *CertificateOwner) Activate(tenantID string, install func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fixed != "" && tenantID != o.fixed {
		return fmt.Errorf("%w: el despliegue solo firma para el tenant %s", domain.ErrForbidden, o.fixed)
	}
	if o.held && o.tenant != tenantID {
		return fmt.Errorf("%w: el certificado activo pertenece a otro tenant", domain.ErrForbidden)
	}
	if err := install(); err != nil {
		return err
	}
	o.tenant, o.held = tenantID, true
	return nil
}

// Owns indica si tenantID puede usar el certificado activo.
func (o *CertificateOwner) Owns(tenantID string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return !o.held || o.tenant == "" || o.tenant == tenantID
}

// Tenant dueño actual; vacío si no hay o es del despliegue.
func (o *CertificateOwner) Tenant() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.tenant
}
