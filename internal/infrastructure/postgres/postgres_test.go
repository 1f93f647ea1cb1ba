package postgres_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/postgres"
)

// ──────────────────────────────────────────────────────────────────────────────
// Querier falso: registra las sentencias y devuelve respuestas programadas
// ──────────────────────────────────────────────────────────────────────────────

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int64:
			*p = r.values[i].(int64)
		case *[]byte:
			*p = r.values[i].([]byte)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *decimal.Decimal:
			*p = r.values[i].(decimal.Decimal)
		}
	}
	return nil
}

type fakeQuerier struct {
	sqls    []string
	args    [][]any
	row     fakeRow
	execErr error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sqls = append(f.sqls, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("no implementado")
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sqls = append(f.sqls, sql)
	f.args = append(f.args, args)
	return f.row
}

// ──────────────────────────────────────────────────────────────────────────────
// Migraciones
// ──────────────────────────────────────────────────────────────────────────────

func TestMigrationSource_Scripts(t *testing.T) {
	src, err := postgres.MigrationSource()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	r, identifier, err := src.ReadUp(first)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "dte", identifier)
	script, err := io.ReadAll(r)
	require.NoError(t, err)
	for _, table := range []string{"signing_credentials", "dte_sequences", "dte_documents"} {
		assert.Contains(t, string(script), "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, string(script), "UNIQUE (tenant_id, control_number)")

	// Sin scripts down: la reversión no está soportada.
	_, _, err = src.ReadDown(first)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMigrate_SinConexion(t *testing.T) {
	assert.Error(t, postgres.RunMigrations(nil))
	assert.Error(t, postgres.Migrate(nil))
}

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios
// ──────────────────────────────────────────────────────────────────────────────

func TestSequenceRepo_Next(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{int64(7)}}}
	next, err := postgres.NewSequenceRepository(q).Next(context.Background(), "t1", "01", "M001P001")
	require.NoError(t, err)
	assert.Equal(t, int64(7), next)
	assert.Contains(t, q.sqls[0], "ON CONFLICT")
	assert.Equal(t, []any{"t1", "01", "M001P001"}, q.args[0])
}

func TestSigningCredentialRepo_GetByTenant(t *testing.T) {
	vence := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	q := &fakeQuerier{row: fakeRow{values: []any{"t1", []byte{1, 2}, "blob", "CN=X", "1A2B", vence, vence}}}
	cred, err := postgres.NewSigningCredentialRepository(q).GetByTenant(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "blob", cred.PasswordEnc)
	assert.Equal(t, vence, cred.ValidTo)

	missing := &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	cred, err = postgres.NewSigningCredentialRepository(missing).GetByTenant(context.Background(), "t2")
	require.NoError(t, err, "sin fila no es error")
	assert.Nil(t, cred)
}

func TestSigningCredentialRepo_Upsert(t *testing.T) {
	q := &fakeQuerier{}
	err := postgres.NewSigningCredentialRepository(q).Upsert(context.Background(), &entity.SigningCredential{TenantID: "t1", PasswordEnc: "blob"})
	require.NoError(t, err)
	assert.True(t, strings.Contains(q.sqls[0], "ON CONFLICT (tenant_id)"))
}

func TestIssuedDocumentRepo_SaveDuplicado(t *testing.T) {
	q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505"}}
	err := postgres.NewIssuedDocumentRepository(q).Save(context.Background(), &entity.IssuedDocument{ControlNumber: "DTE-01-00000001-000000000000001"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	q = &fakeQuerier{execErr: errors.New("timeout")}
	err = postgres.NewIssuedDocumentRepository(q).Save(context.Background(), &entity.IssuedDocument{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIssuedDocumentRepo_GetByGenerationCode(t *testing.T) {
	emitido := time.Date(2027, 6, 1, 12, 0, 0, 0, time.UTC)
	q := &fakeQuerier{row: fakeRow{values: []any{
		"ABC", "t1", "DTE-01-00000001-000000000000001", "01", decimal.RequireFromString("23.84"), "a.b.c", emitido,
	}}}
	doc, err := postgres.NewIssuedDocumentRepository(q).GetByGenerationCode(context.Background(), "t1", "ABC")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.True(t, doc.TotalPayable.Equal(decimal.RequireFromString("23.84")))
	assert.Equal(t, "a.b.c", doc.SignedToken)

	missing := &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	doc, err = postgres.NewIssuedDocumentRepository(missing).GetByGenerationCode(context.Background(), "t1", "X")
	require.NoError(t, err)
	assert.Nil(t, doc)
}
