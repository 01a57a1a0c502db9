package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/logging"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/entries"
	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "report.pdf", false},
		{"unicode", "отчёт.txt", false},
		{"max length", strings.Repeat("a", MaxNameLength), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), true},
		{"slash", "a/b", true},
		{"nul", "a\x00b", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateFolder(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	root := fx.folder(t, "A", "docs", "")
	assert.Equal(t, models.KindFolder, root.Kind)
	assert.Equal(t, int64(1), root.Version)
	assert.True(t, root.IsRoot())
	assert.False(t, root.CreatedAt.IsZero())

	child := fx.folder(t, "A", "2026", root.ID)
	assert.Equal(t, root.ID, child.ParentID)

	// parent must exist, be owned by the caller and be a folder
	_, err := fx.tree.CreateFolder(ctx, "A", "x", "missing")
	assert.ErrorIs(t, err, common.ErrInvalidReference)

	_, err = fx.tree.CreateFolder(ctx, "B", "x", root.ID)
	assert.ErrorIs(t, err, common.ErrInvalidReference)

	f := fx.file(t, "A", "a.txt", root.ID, 1)
	_, err = fx.tree.CreateFolder(ctx, "A", "x", f.ID)
	assert.ErrorIs(t, err, common.ErrInvalidReference)

	_, err = fx.tree.CreateFolder(ctx, "A", "a/b", "")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = fx.tree.CreateFolder(ctx, "", "x", "")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestCreateFile(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	f := fx.file(t, "A", "a.txt", "", 42)
	assert.Equal(t, models.KindFile, f.Kind)
	assert.Equal(t, uint64(42), f.Size)
	assert.NotEmpty(t, f.Locator)

	_, err := fx.tree.CreateFile(ctx, "A", "b.txt", "", "", 1)
	assert.ErrorIs(t, err, common.ErrInvalidReference)

	// locators are unique
	_, err = fx.tree.CreateFile(ctx, "A", "c.txt", "", f.Locator, 1)
	assert.ErrorIs(t, err, common.ErrInvalidReference)
}

func TestGetEntry_OwnershipGate(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	f := fx.file(t, "A", "a.txt", "", 1)

	got, err := fx.tree.GetEntry(ctx, "A", f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	_, errOther := fx.tree.GetEntry(ctx, "B", f.ID)
	_, errMissing := fx.tree.GetEntry(ctx, "B", "does-not-exist")
	assert.ErrorIs(t, errOther, common.ErrNotFound)
	assert.ErrorIs(t, errMissing, common.ErrNotFound)
	assert.Equal(t, errMissing.Error(), errOther.Error())

	_, err = fx.tree.GetEntry(ctx, "A", "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRename(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	f := fx.file(t, "A", "a.txt", "", 1)

	renamed, err := fx.tree.Rename(ctx, "A", f.ID, "b.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", renamed.Name)
	assert.Equal(t, int64(2), renamed.Version)
	assert.Equal(t, f.Locator, renamed.Locator)
	assert.Equal(t, f.Size, renamed.Size)

	stored, err := fx.tree.GetEntry(ctx, "A", f.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", stored.Name)

	_, err = fx.tree.Rename(ctx, "A", f.ID, "c.txt", 1)
	assert.ErrorIs(t, err, common.ErrVersionConflict)

	_, err = fx.tree.Rename(ctx, "A", f.ID, "c.txt", 2)
	require.NoError(t, err)

	_, err = fx.tree.Rename(ctx, "B", f.ID, "stolen", 0)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = fx.tree.Rename(ctx, "A", "missing", "x", 0)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = fx.tree.Rename(ctx, "A", f.ID, "..", 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestListChildren(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	docs := fx.folder(t, "A", "docs", "")
	fx.file(t, "A", "a.txt", docs.ID, 1)
	fx.file(t, "A", "b.txt", docs.ID, 2)
	fx.file(t, "A", "top.txt", "", 3)
	fx.folder(t, "B", "other", "")

	children, err := fx.tree.ListChildren(ctx, "A", docs.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)

	roots, err := fx.tree.ListChildren(ctx, "A", "")
	require.NoError(t, err)
	assert.Len(t, roots, 2)

	_, err = fx.tree.ListChildren(ctx, "B", docs.ID)
	assert.ErrorIs(t, err, common.ErrInvalidReference)

	_, err = fx.tree.ListChildren(ctx, "A", children[0].ID)
	assert.ErrorIs(t, err, common.ErrInvalidReference)
}

func TestDelete_Recursive(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	top := fx.folder(t, "A", "top", "")
	f1 := fx.file(t, "A", "one.txt", top.ID, 10)
	sub := fx.folder(t, "A", "sub", top.ID)
	f2 := fx.file(t, "A", "two.txt", sub.ID, 20)
	keep := fx.file(t, "A", "keep.txt", "", 5)

	require.NoError(t, fx.tree.Delete(ctx, "A", top.ID))

	for _, id := range []string{top.ID, f1.ID, sub.ID, f2.ID} {
		_, err := fx.tree.GetEntry(ctx, "A", id)
		assert.ErrorIs(t, err, common.ErrNotFound, id)
	}
	assert.ElementsMatch(t, []string{f1.Locator, f2.Locator}, fx.blobs.deleted)

	_, err := fx.tree.GetEntry(ctx, "A", keep.ID)
	assert.NoError(t, err)

	// a second delete of the same id finds nothing
	assert.ErrorIs(t, fx.tree.Delete(ctx, "A", top.ID), common.ErrNotFound)
}

func TestDelete_OtherOwner(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	f := fx.file(t, "A", "a.txt", "", 1)
	assert.ErrorIs(t, fx.tree.Delete(ctx, "B", f.ID), common.ErrNotFound)

	_, err := fx.tree.GetEntry(ctx, "A", f.ID)
	assert.NoError(t, err)
	assert.Empty(t, fx.blobs.deleted)
}

func TestDelete_BlobFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	fx := newFixture(t, logging.New(&buf, "json", "debug"))
	ctx := context.Background()

	f := fx.file(t, "A", "a.txt", "", 1)
	fx.blobs.deleteErr = map[string]error{f.Locator: errors.New("s3 down")}

	require.NoError(t, fx.tree.Delete(ctx, "A", f.ID))

	_, err := fx.tree.GetEntry(ctx, "A", f.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Contains(t, buf.String(), "blob delete failed")
	assert.Contains(t, buf.String(), f.Locator)
}

func TestDelete_CycleIsDetected(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	// a corrupted store: x and y are each other's parent
	repo := fx.rm.Entries()
	require.NoError(t, repo.Create(ctx, &models.Entry{ID: "x", OwnerID: "A", Name: "x", Kind: models.KindFolder, ParentID: "y", Version: 1}))
	require.NoError(t, repo.Create(ctx, &models.Entry{ID: "y", OwnerID: "A", Name: "y", Kind: models.KindFolder, ParentID: "x", Version: 1}))

	err := fx.tree.Delete(ctx, "A", "x")
	assert.ErrorIs(t, err, common.ErrCycleDetected)
	assert.ErrorIs(t, err, common.ErrInvalidReference)

	// nothing was removed
	for _, id := range []string{"x", "y"} {
		_, err := fx.tree.GetEntry(ctx, "A", id)
		assert.NoError(t, err)
	}
}

func TestDelete_RollsBackOnStoreError(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	top := fx.folder(t, "A", "top", "")
	f := fx.file(t, "A", "a.txt", top.ID, 1)

	failing := &failingDeleteManager{RepositoryManager: fx.rm, failID: top.ID}
	tree := NewTreeService(failing, fx.blobs, logging.Nop())

	err := tree.Delete(ctx, "A", top.ID)
	assert.ErrorIs(t, err, assert.AnError)

	_, err = fx.tree.GetEntry(ctx, "A", f.ID)
	assert.NoError(t, err, "child deletion must be rolled back")
	assert.Empty(t, fx.blobs.deleted)
}

type failingDeleteManager struct {
	repomanager.RepositoryManager
	failID string
}

type failingRepo struct {
	entries.Repository
	failID string
}

func (r *failingRepo) Delete(ctx context.Context, ownerID, id string) error {
	if id == r.failID {
		return assert.AnError
	}
	return r.Repository.Delete(ctx, ownerID, id)
}

func (m *failingDeleteManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo entries.Repository) error) error {
	return m.RepositoryManager.WithinTx(ctx, func(ctx context.Context, repo entries.Repository) error {
		return fn(ctx, &failingRepo{Repository: repo, failID: m.failID})
	})
}
