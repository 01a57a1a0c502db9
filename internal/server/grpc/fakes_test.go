package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/logging"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
)

// ---- fakes ----

type fakeTree struct {
	TreeManager

	entry    *models.Entry
	children []*models.Entry
	err      error

	gotOwner   string
	gotID      string
	gotName    string
	gotParent  string
	gotVersion int64
	deleted    []string
}

func (f *fakeTree) CreateFolder(ctx context.Context, owner, name, parentID string) (*models.Entry, error) {
	f.gotOwner, f.gotName, f.gotParent = owner, name, parentID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Entry{ID: "f1", OwnerID: owner, Name: name, Kind: models.KindFolder, ParentID: parentID, Version: 1}, nil
}

func (f *fakeTree) GetEntry(ctx context.Context, owner, id string) (*models.Entry, error) {
	f.gotOwner, f.gotID = owner, id
	return f.entry, f.err
}

func (f *fakeTree) Rename(ctx context.Context, owner, id, newName string, expectedVersion int64) (*models.Entry, error) {
	f.gotOwner, f.gotID, f.gotName, f.gotVersion = owner, id, newName, expectedVersion
	if f.err != nil {
		return nil, f.err
	}
	return &models.Entry{ID: id, OwnerID: owner, Name: newName, Kind: models.KindFile, Version: expectedVersion + 1}, nil
}

func (f *fakeTree) ListChildren(ctx context.Context, owner, parentID string) ([]*models.Entry, error) {
	f.gotOwner, f.gotParent = owner, parentID
	return f.children, f.err
}

func (f *fakeTree) Delete(ctx context.Context, owner, id string) error {
	f.gotOwner = owner
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeTransfer struct {
	TransferCoordinator
	err error

	gotSize   uint64
	gotParent string
}

func (f *fakeTransfer) RequestUpload(ctx context.Context, owner, filename, contentType string) (*models.Capability, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return &models.Capability{Method: "PUT", URL: "http://blob/put", ExpiresAt: time.Unix(100, 0).UTC()}, owner + "/tok/" + filename, nil
}

func (f *fakeTransfer) FinalizeUpload(ctx context.Context, owner, locator, filename string, size uint64, parentID string) (*models.Entry, error) {
	f.gotSize, f.gotParent = size, parentID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Entry{ID: "e1", OwnerID: owner, Name: filename, Kind: models.KindFile, Size: size, Locator: locator, ParentID: parentID, Version: 1}, nil
}

func (f *fakeTransfer) RequestDownload(ctx context.Context, owner, id string) (*models.Capability, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Capability{Method: "GET", URL: "http://blob/get/" + id}, nil
}

type fakeQuota struct {
	usage *models.Usage
	err   error
}

func (f *fakeQuota) Usage(ctx context.Context, owner string) (*models.Usage, error) {
	if owner == "" {
		return nil, common.ErrUnauthorized
	}
	return f.usage, f.err
}

func newTestServer(secret string) (*GRPCServer, *fakeTree, *fakeTransfer, *fakeQuota) {
	tree := &fakeTree{}
	transfer := &fakeTransfer{}
	quota := &fakeQuota{usage: &models.Usage{BytesUsed: 60, BytesLimit: 100}}
	return NewGRPCServer("127.0.0.1:0", logging.Nop(), tree, transfer, quota, secret), tree, transfer, quota
}
