package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
)

var _ billing.IssueTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunIssue ejecuta fn con los repositorios de correlativos y bitácora atados a
// una misma transacción. Si fn falla se hace Rollback y el correlativo no se consume.
func (r *TxRunner) RunIssue(ctx context.Context, fn func(
	sequences repository.SequenceRepository,
	documents repository.IssuedDocumentRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewSequenceRepository(tx), NewIssuedDocumentRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
