package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/logging"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakeBlobStore struct {
	mu sync.Mutex

	deleted   []string
	deleteErr map[string]error

	putErr  error
	getErr  error
	sizes   map[string]uint64
	sizeErr error

	lastPut struct{ locator, contentType string }
	lastGet struct{ locator, filename string }
}

func (f *fakeBlobStore) PresignPut(ctx context.Context, locator, contentType string, expires time.Duration) (*models.Capability, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.lastPut.locator, f.lastPut.contentType = locator, contentType
	return &models.Capability{Method: "PUT", URL: "http://blob/" + locator, ExpiresAt: time.Now().Add(expires)}, nil
}

func (f *fakeBlobStore) PresignGet(ctx context.Context, locator, filename string, expires time.Duration) (*models.Capability, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.lastGet.locator, f.lastGet.filename = locator, filename
	return &models.Capability{Method: "GET", URL: "http://blob/" + locator, ExpiresAt: time.Now().Add(expires)}, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, locator)
	if err, ok := f.deleteErr[locator]; ok {
		return err
	}
	return nil
}

func (f *fakeBlobStore) Size(ctx context.Context, locator string) (uint64, error) {
	if f.sizeErr != nil {
		return 0, f.sizeErr
	}
	n, ok := f.sizes[locator]
	if !ok {
		return 0, errors.New("no such object")
	}
	return n, nil
}

type fixture struct {
	rm       repomanager.RepositoryManager
	blobs    *fakeBlobStore
	tree     *TreeService
	transfer *TransferService
	quota    *QuotaService
}

func newFixture(t *testing.T, log logging.Logger) *fixture {
	t.Helper()
	if log == nil {
		log = logging.Nop()
	}

	rm, err := repomanager.Open(context.Background(), repomanager.DriverBolt, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rm.Close() })

	blobs := &fakeBlobStore{}
	tree := NewTreeService(rm, blobs, log)
	return &fixture{
		rm:       rm,
		blobs:    blobs,
		tree:     tree,
		transfer: NewTransferService(tree, blobs, log, time.Hour, false),
		quota:    NewQuotaService(rm, FlatQuota(1000)),
	}
}

// file creates a file entry with a unique locator.
func (fx *fixture) file(t *testing.T, owner, name, parent string, size uint64) *models.Entry {
	t.Helper()
	e, err := fx.tree.CreateFile(context.Background(), owner, name, parent, Locator(owner, name+"-tok", name), size)
	require.NoError(t, err)
	return e
}

func (fx *fixture) folder(t *testing.T, owner, name, parent string) *models.Entry {
	t.Helper()
	e, err := fx.tree.CreateFolder(context.Background(), owner, name, parent)
	require.NoError(t, err)
	return e
}
