package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/dbx"
	"github.com/dmitrijs2005/cryptocloud/internal/server/migrations"
	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/entries"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresManager vends PostgreSQL-backed repositories and applies the
// embedded goose migrations.
type PostgresManager struct {
	db *sql.DB
}

// NewPostgresManager opens a pgx connection pool for dsn.
func NewPostgresManager(dsn string) (*PostgresManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return NewPostgresManagerFromDB(db), nil
}

func NewPostgresManagerFromDB(db *sql.DB) *PostgresManager {
	return &PostgresManager{db: db}
}

func (m *PostgresManager) Entries() entries.Repository {
	return entries.NewPostgresRepository(m.db)
}

// maxTxAttempts bounds how often a transaction is rerun after a
// serialization failure.
const maxTxAttempts = 3

// WithinTx runs fn in a serializable transaction. When Postgres aborts it
// with a serialization failure the whole transaction, fn included, is run
// again; after maxTxAttempts the failure is reported as
// common.ErrVersionConflict.
func (m *PostgresManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo entries.Repository) error) error {
	var err error
	for range maxTxAttempts {
		err = dbx.WithTx(ctx, m.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(ctx, entries.NewPostgresRepository(tx))
		})
		if !isSerializationFailure(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", common.ErrVersionConflict, err)
}

// isSerializationFailure reports SQLSTATE 40001 serialization_failure.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func (m *PostgresManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}

func (m *PostgresManager) Close() error {
	return m.db.Close()
}
