package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/logging"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/entries"
	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TreeService owns the entry records of every owner's namespace forest.
//
// Every operation that addresses an existing entry goes through get, which
// returns common.ErrNotFound both for missing ids and for entries owned by
// someone else.
type TreeService struct {
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	log         logging.Logger

	now   func() time.Time
	newID func() string
}

func NewTreeService(rm repomanager.RepositoryManager, blobs BlobStore, log logging.Logger) *TreeService {
	return &TreeService{
		repomanager: rm,
		blobs:       blobs,
		log:         log.With("module", "tree"),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// get is the single ownership gate.
func (s *TreeService) get(ctx context.Context, repo entries.Repository, owner, id string) (*models.Entry, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, common.ErrNotFound
	}

	e, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.OwnerID != owner {
		return nil, common.ErrNotFound
	}
	return e, nil
}

// resolveParent checks that parentID is empty (root level) or names a
// folder owned by owner.
func (s *TreeService) resolveParent(ctx context.Context, repo entries.Repository, owner, parentID string) error {
	if parentID == "" {
		return requireOwner(owner)
	}
	p, err := s.get(ctx, repo, owner, parentID)
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("%w: parent %s does not exist", common.ErrInvalidReference, parentID)
	}
	if err != nil {
		return err
	}
	if !p.IsFolder() {
		return fmt.Errorf("%w: parent %s is not a folder", common.ErrInvalidReference, parentID)
	}
	return nil
}

func (s *TreeService) create(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	if err := validateName(e.Name); err != nil {
		return nil, err
	}

	e.ID = s.newID()
	e.CreatedAt = s.now().UTC()
	e.Version = 1

	err := s.repomanager.WithinTx(ctx, func(ctx context.Context, repo entries.Repository) error {
		if err := s.resolveParent(ctx, repo, e.OwnerID, e.ParentID); err != nil {
			return err
		}
		return repo.Create(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug(ctx, "entry created", "id", e.ID, "owner", e.OwnerID, "kind", e.Kind)
	return e, nil
}

// CreateFolder creates a folder under parentID, or at root level when
// parentID is empty.
func (s *TreeService) CreateFolder(ctx context.Context, owner, name, parentID string) (*models.Entry, error) {
	return s.create(ctx, &models.Entry{
		OwnerID:  owner,
		Name:     name,
		Kind:     models.KindFolder,
		ParentID: parentID,
	})
}

// CreateFile records a file whose bytes already live at locator.
func (s *TreeService) CreateFile(ctx context.Context, owner, name, parentID, locator string, size uint64) (*models.Entry, error) {
	if locator == "" {
		return nil, fmt.Errorf("%w: empty locator", common.ErrInvalidReference)
	}
	if err := validateSize(size); err != nil {
		return nil, err
	}
	return s.create(ctx, &models.Entry{
		OwnerID:  owner,
		Name:     name,
		Kind:     models.KindFile,
		ParentID: parentID,
		Size:     size,
		Locator:  locator,
	})
}

// GetEntry returns the entry if owner may see it.
func (s *TreeService) GetEntry(ctx context.Context, owner, id string) (*models.Entry, error) {
	return s.get(ctx, s.repomanager.Entries(), owner, id)
}

// Rename changes the display name of an entry. When expectedVersion is not
// zero it must match the stored version. The stored version is always
// checked against the one read, so a concurrent rename or delete surfaces
// as common.ErrVersionConflict.
func (s *TreeService) Rename(ctx context.Context, owner, id, newName string, expectedVersion int64) (*models.Entry, error) {
	if err := validateName(newName); err != nil {
		return nil, err
	}

	repo := s.repomanager.Entries()
	e, err := s.get(ctx, repo, owner, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && expectedVersion != e.Version {
		return nil, common.ErrVersionConflict
	}

	e.Name = newName
	if err := repo.UpdateName(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListChildren returns the entries directly under parentID, in no
// particular order.
func (s *TreeService) ListChildren(ctx context.Context, owner, parentID string) ([]*models.Entry, error) {
	repo := s.repomanager.Entries()
	if err := s.resolveParent(ctx, repo, owner, parentID); err != nil {
		return nil, err
	}
	return repo.ListChildren(ctx, owner, parentID)
}

// Delete removes an entry and, for folders, everything below it.
//
// Records are removed post-order inside one record-store transaction. Blob
// deletions run only after the commit and are best effort: a failure is
// logged and leaves an orphaned object behind.
func (s *TreeService) Delete(ctx context.Context, owner, id string) error {
	var (
		locators []string
		removed  int
	)

	err := s.repomanager.WithinTx(ctx, func(ctx context.Context, repo entries.Repository) error {
		// the record store reruns fn after a serialization failure, start clean
		locators, removed = locators[:0], 0

		root, err := s.get(ctx, repo, owner, id)
		if err != nil {
			return err
		}

		w := &deleteWalk{repo: repo, visited: make(map[string]struct{})}
		if err := w.remove(ctx, root); err != nil {
			return err
		}
		locators, removed = w.locators, w.removed
		return nil
	})
	if err != nil {
		return err
	}

	failed := s.deleteBlobs(context.WithoutCancel(ctx), locators)
	s.log.Info(ctx, "entry deleted",
		"id", id, "owner", owner, "entries", removed, "blobs", len(locators), "blob_failures", failed)
	return nil
}

func (s *TreeService) deleteBlobs(ctx context.Context, locators []string) int {
	failed := 0
	for _, loc := range locators {
		if err := s.blobs.Delete(ctx, loc); err != nil {
			failed++
			s.log.Warn(ctx, "blob delete failed", "locator", loc, "error", err)
		}
	}
	return failed
}

type deleteWalk struct {
	repo     entries.Repository
	visited  map[string]struct{}
	locators []string
	removed  int
}

func (w *deleteWalk) remove(ctx context.Context, e *models.Entry) error {
	if _, seen := w.visited[e.ID]; seen {
		return fmt.Errorf("%w at entry %s", common.ErrCycleDetected, e.ID)
	}
	w.visited[e.ID] = struct{}{}

	if e.IsFolder() {
		children, err := w.repo.ListChildren(ctx, e.OwnerID, e.ID)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := w.remove(ctx, c); err != nil {
				return err
			}
		}
	}

	err := w.repo.Delete(ctx, e.OwnerID, e.ID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		// already gone
		return nil
	case err != nil:
		return err
	}

	w.removed++
	if e.Kind == models.KindFile && e.Locator != "" {
		w.locators = append(w.locators, e.Locator)
	}
	return nil
}
