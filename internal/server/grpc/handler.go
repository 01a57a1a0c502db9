package grpc

import (
	"context"

	"github.com/dmitrijs2005/cryptocloud/internal/api"
	"github.com/dmitrijs2005/cryptocloud/internal/server/auth"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errNoOwner = status.Error(codes.Unauthenticated, "unauthorized")

func (s *GRPCServer) CreateFolder(ctx context.Context, req *api.CreateFolderRequest) (*api.EntryResponse, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, errNoOwner
	}

	e, err := s.tree.CreateFolder(ctx, owner, req.Name, req.ParentID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.EntryResponse{Entry: toAPIEntry(e)}, nil
}

func (s *GRPCServer) GetEntry(ctx context.Context, req *api.GetEntryRequest) (*api.EntryResponse, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, errNoOwner
	}

	e, err := s.tree.GetEntry(ctx, owner, req.EntryID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.EntryResponse{Entry: toAPIEntry(e)}, nil
}

func (s *GRPCServer) Rename(ctx context.Context, req *api.RenameRequest) (*api.EntryResponse, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, errNoOwner
	}

	e, err := s.tree.Rename(ctx, owner, req.EntryID, req.NewName, req.ExpectedVersion)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.EntryResponse{Entry: toAPIEntry(e)}, nil
}

func (s *GRPCServer) ListChildren(ctx context.Context, req *api.ListChildrenRequest) (*api.ListChildrenResponse, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, errNoOwner
	}

	list, err := s.tree.ListChildren(ctx, owner, req.ParentID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &api.ListChildrenResponse{Entries: make([]*api.Entry, 0, len(list))}
	for _, e := range list {
		resp.Entries = append(resp.Entries, toAPIEntry(e))
	}
	return resp, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *api.DeleteRequest) (*api.DeleteResponse, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, errNoOwner
	}

	if err := s.tree.Delete(ctx, owner, req.EntryID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.DeleteResponse{}, nil
}

func (s *GRPCServer) RequestUpload(ctx context.Context, req *api.RequestUploadRequest) (*api.RequestUploadResponse, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, errNoOwner
	}

	capb, locator, err := s.transfer.RequestUpload(ctx, owner, req.Filename, req.ContentType)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.RequestUploadResponse{Capability: toAPICapability(capb), Locator: locator}, nil
}

func (s *GRPCServer) FinalizeUpload(ctx context.Context, req *api.FinalizeUploadRequest) (*api.EntryResponse, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, errNoOwner
	}

	e, err := s.transfer.FinalizeUpload(ctx, owner, req.Locator, req.Filename, req.Size, req.ParentID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.EntryResponse{Entry: toAPIEntry(e)}, nil
}

func (s *GRPCServer) RequestDownload(ctx context.Context, req *api.RequestDownloadRequest) (*api.RequestDownloadResponse, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, errNoOwner
	}

	capb, err := s.transfer.RequestDownload(ctx, owner, req.EntryID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.RequestDownloadResponse{Capability: toAPICapability(capb)}, nil
}

func (s *GRPCServer) Usage(ctx context.Context, _ *api.UsageRequest) (*api.UsageResponse, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, errNoOwner
	}

	u, err := s.quota.Usage(ctx, owner)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UsageResponse{BytesUsed: u.BytesUsed, BytesLimit: u.BytesLimit}, nil
}

func toAPIEntry(e *models.Entry) *api.Entry {
	return &api.Entry{
		ID:        e.ID,
		ParentID:  e.ParentID,
		Name:      e.Name,
		Kind:      string(e.Kind),
		Size:      e.Size,
		CreatedAt: e.CreatedAt,
		Version:   e.Version,
	}
}

func toAPICapability(c *models.Capability) *api.Capability {
	return &api.Capability{
		Method:    c.Method,
		URL:       c.URL,
		Header:    c.Header,
		ExpiresAt: c.ExpiresAt,
	}
}
