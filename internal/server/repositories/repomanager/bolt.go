package repomanager

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/filex"
	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/entries"
	"go.etcd.io/bbolt"
)

// BoltManager serves the record store from a single bbolt file.
type BoltManager struct {
	db *bbolt.DB
}

// OpenBoltManager opens or creates the database at path. The parent
// directory is created if needed.
func OpenBoltManager(path string) (*BoltManager, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("boltstore: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open: %w", err)
	}
	return &BoltManager{db: db}, nil
}

func (m *BoltManager) Entries() entries.Repository {
	return entries.NewBoltRepository(m.db)
}

// WithinTx runs fn inside one read-write bbolt transaction. bbolt allows a
// single writer at a time, so these transactions are serialized.
func (m *BoltManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo entries.Repository) error) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		return fn(ctx, entries.NewBoltTxRepository(tx))
	})
}

func (m *BoltManager) RunMigrations(context.Context) error {
	return m.db.Update(entries.InitBoltBuckets)
}

func (m *BoltManager) Close() error {
	return m.db.Close()
}
