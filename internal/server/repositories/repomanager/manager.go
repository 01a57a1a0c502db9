// Package repomanager vends record-store repositories and runs multi-step
// mutations inside a single store transaction.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/entries"
)

const (
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

type RepositoryManager interface {
	// Entries returns a repository that runs each call on its own.
	Entries() entries.Repository
	// WithinTx runs fn with a repository bound to one transaction, committing
	// when fn returns nil and rolling back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo entries.Repository) error) error
	RunMigrations(ctx context.Context) error
	Close() error
}

// Open creates the manager for driver and brings its schema up to date.
// dsn is a Postgres DSN for DriverPostgres and a file path for DriverBolt.
func Open(ctx context.Context, driver, dsn string) (RepositoryManager, error) {
	var (
		m   RepositoryManager
		err error
	)
	switch driver {
	case DriverPostgres, "":
		m, err = NewPostgresManager(dsn)
	case DriverBolt:
		m, err = OpenBoltManager(dsn)
	default:
		return nil, fmt.Errorf("unknown record store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m, nil
}
