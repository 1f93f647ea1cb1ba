package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
)

var _ repository.IssuedDocumentRepository = (*IssuedDocumentRepo)(nil)

// IssuedDocumentRepo bitácora de DTE firmados sobre PostgreSQL.
type IssuedDocumentRepo struct {
	db Querier
}

// NewIssuedDocumentRepository construye el repositorio.
func NewIssuedDocumentRepository(db Querier) *IssuedDocumentRepo {
	return &IssuedDocumentRepo{db: db}
}

// Save inserta el documento. Un código de generación o número de control repetido
// devuelve domain.ErrInvalidInput.
func (r *IssuedDocumentRepo) Save(ctx context.Context, d *entity.IssuedDocument) error {
	const q = `
		INSERT INTO dte_documents
			(generation_code, tenant_id, control_number, document_type, total_pagar, signed_token, emitted_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, q,
		d.GenerationCode, d.TenantID, d.ControlNumber, d.DocumentType, d.TotalPayable, d.SignedToken, d.EmittedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: documento duplicado %s", domain.ErrInvalidInput, d.ControlNumber)
		}
		return fmt.Errorf("insert dte_document: %w", err)
	}
	return nil
}

func (r *IssuedDocumentRepo) GetByGenerationCode(ctx context.Context, tenantID, generationCode string) (*entity.IssuedDocument, error) {
	const q = `
		SELECT generation_code, tenant_id, control_number, document_type, total_pagar, signed_token, emitted_at
		FROM dte_documents
		WHERE tenant_id = $1 AND generation_code = $2`
	doc, err := scanIssuedDocument(r.db.QueryRow(ctx, q, tenantID, generationCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dte_document: %w", err)
	}
	return doc, nil
}

func scanIssuedDocument(row pgxScanner) (*entity.IssuedDocument, error) {
	var d entity.IssuedDocument
	if err := row.Scan(
		&d.GenerationCode, &d.TenantID, &d.ControlNumber, &d.DocumentType,
		&d.TotalPayable, &d.SignedToken, &d.EmittedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
