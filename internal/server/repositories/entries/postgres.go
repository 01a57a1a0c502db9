package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/dbx"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const entryColumns = `id, owner_id, name, kind, parent_id, size, locator, created_at, version`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.Entry, error) {
	var (
		e    models.Entry
		kind string
		size int64
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &kind, &e.ParentID, &size, &e.Locator, &e.CreatedAt, &e.Version); err != nil {
		return nil, err
	}
	e.Kind = models.Kind(kind)
	e.Size = uint64(size)
	return &e, nil
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.Entry) error {
	query := `INSERT INTO entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.OwnerID, entry.Name, string(entry.Kind), entry.ParentID,
		int64(entry.Size), entry.Locator, entry.CreatedAt, entry.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: duplicate id or locator", common.ErrInvalidReference)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id=$1`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select entry: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) UpdateName(ctx context.Context, entry *models.Entry) error {
	query := `UPDATE entries SET name=$1, version=version+1
		WHERE id=$2 AND owner_id=$3 AND version=$4`

	res, err := r.db.ExecContext(ctx, query, entry.Name, entry.ID, entry.OwnerID, entry.Version)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}

	switch n {
	case 1:
		entry.Version++
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) ListChildren(ctx context.Context, ownerID, parentID string) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE owner_id=$1 AND parent_id=$2`

	rows, err := r.db.QueryContext(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SumFileSizes(ctx context.Context, ownerID string) (uint64, error) {
	query := `SELECT COALESCE(SUM(size), 0)::BIGINT FROM entries WHERE owner_id=$1 AND kind='file'`

	var total int64
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum sizes: %w", err)
	}
	return uint64(total), nil
}
