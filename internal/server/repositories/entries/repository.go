// Package entries is the record store for namespace entries. It has a
// PostgreSQL implementation for deployments and a bbolt implementation for
// single-node installs and tests.
package entries

import (
	"context"

	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
)

// Repository is the keyed record store consumed by the tree manager.
//
// GetByID does not check ownership; callers authorize. Mutations are scoped
// to an owner and fail with common.ErrNotFound when nothing matched.
type Repository interface {
	Create(ctx context.Context, entry *models.Entry) error
	GetByID(ctx context.Context, id string) (*models.Entry, error)
	// UpdateName stores entry.Name if the stored version still equals
	// entry.Version, then increments entry.Version. A stale version yields
	// common.ErrVersionConflict.
	UpdateName(ctx context.Context, entry *models.Entry) error
	// ListChildren returns the owner's entries whose parent is parentID;
	// an empty parentID lists the root level.
	ListChildren(ctx context.Context, ownerID, parentID string) ([]*models.Entry, error)
	Delete(ctx context.Context, ownerID, id string) error
	// SumFileSizes adds up Size over the owner's file entries.
	SumFileSizes(ctx context.Context, ownerID string) (uint64, error)
}
