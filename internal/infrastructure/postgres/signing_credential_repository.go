package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
)

var _ repository.SigningCredentialRepository = (*SigningCredentialRepo)(nil)

// SigningCredentialRepo implementa SigningCredentialRepository sobre PostgreSQL.
type SigningCredentialRepo struct {
	db Querier
}

// NewSigningCredentialRepository construye el repositorio.
func NewSigningCredentialRepository(db Querier) *SigningCredentialRepo {
	return &SigningCredentialRepo{db: db}
}

func (r *SigningCredentialRepo) Upsert(ctx context.Context, c *entity.SigningCredential) error {
	const q = `
		INSERT INTO signing_credentials
			(tenant_id, certificate, password_enc, subject, serial_number, valid_to, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE SET
			certificate   = EXCLUDED.certificate,
			password_enc  = EXCLUDED.password_enc,
			subject       = EXCLUDED.subject,
			serial_number = EXCLUDED.serial_number,
			valid_to      = EXCLUDED.valid_to,
			updated_at    = EXCLUDED.updated_at`
	_, err := r.db.Exec(ctx, q,
		c.TenantID, c.Certificate, c.PasswordEnc, c.Subject, c.SerialNumber, c.ValidTo, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert signing_credential: %w", err)
	}
	return nil
}

func (r *SigningCredentialRepo) GetByTenant(ctx context.Context, tenantID string) (*entity.SigningCredential, error) {
	const q = `
		SELECT tenant_id, certificate, password_enc, subject, serial_number, valid_to, updated_at
		FROM signing_credentials WHERE tenant_id = $1`
	var c entity.SigningCredential
	err := r.db.QueryRow(ctx, q, tenantID).Scan(
		&c.TenantID, &c.Certificate, &c.PasswordEnc, &c.Subject, &c.SerialNumber, &c.ValidTo, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get signing_credential: %w", err)
	}
	return &c, nil
}
