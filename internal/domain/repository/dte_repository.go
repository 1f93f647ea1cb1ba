package repository

import (
	"context"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
)

// SequenceRepository asigna correlativos por (tenant, tipo de documento, establecimiento).
// Next debe ser atómico: dos llamadas concurrentes nunca devuelven el mismo valor.
type SequenceRepository interface {
	Next(ctx context.Context, tenantID, documentType, establishment string) (int64, error)
}

// IssuedDocumentRepository bitácora de documentos firmados.
type IssuedDocumentRepository interface {
	Save(ctx context.Context, doc *entity.IssuedDocument) error
	GetByGenerationCode(ctx context.Context, tenantID, generationCode string) (*entity.IssuedDocument, error)
}
