package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo asigna correlativos con un único UPSERT: la fila queda bloqueada
// hasta el fin de la transacción, así dos emisiones concurrentes nunca comparten número.
type SequenceRepo struct {
	db Querier
}

// NewSequenceRepository construye el repositorio.
func NewSequenceRepository(db Querier) *SequenceRepo {
	return &SequenceRepo{db: db}
}

func (r *SequenceRepo) Next(ctx context.Context, tenantID, documentType, establishment string) (int64, error) {
	const q = `
		INSERT INTO dte_sequences (tenant_id, document_type, establishment, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, document_type, establishment)
		DO UPDATE SET last_value = dte_sequences.last_value + 1
		RETURNING last_value`
	var next int64
	if err := r.db.QueryRow(ctx, q, tenantID, documentType, establishment).Scan(&next); err != nil {
		return 0, fmt.Errorf("next dte_sequence: %w", err)
	}
	return next, nil
}
