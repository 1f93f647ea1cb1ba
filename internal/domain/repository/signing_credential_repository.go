package repository

import (
	"context"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
)

// SigningCredentialRepository puerto de persistencia de certificados de firma por tenant.
type SigningCredentialRepository interface {
	// Upsert reemplaza la credencial vigente del tenant.
	Upsert(ctx context.Context, cred *entity.SigningCredential) error
	// GetByTenant devuelve nil, nil si el tenant no tiene credencial.
	GetByTenant(ctx context.Context, tenantID string) (*entity.SigningCredential, error)
}
