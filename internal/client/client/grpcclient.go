// Package client talks to the storage control plane over gRPC.
package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/cryptocloud/internal/api"
	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	closer      func() error
	client      *api.StorageClient
	health      healthpb.HealthClient
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient connects lazily to endpointURL and authenticates every call
// with accessToken. Extra dial options are appended, which tests use to
// dial an in-memory listener.
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.closer = conn.Close
	c.client = api.NewStorageClient(conn)
	c.health = healthpb.NewHealthClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.NotFound:
		return ErrNotFound
	case codes.Aborted:
		return ErrConflict
	case codes.InvalidArgument:
		return fmt.Errorf("invalid request: %s", st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

// Ping reports whether the storage service is serving.
func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: api.ServiceName})
	if err != nil {
		return s.mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (s *GRPCClient) CreateFolder(ctx context.Context, name, parentID string) (*api.Entry, error) {
	resp, err := s.client.CreateFolder(ctx, &api.CreateFolderRequest{Name: name, ParentID: parentID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Entry, nil
}

func (s *GRPCClient) GetEntry(ctx context.Context, id string) (*api.Entry, error) {
	resp, err := s.client.GetEntry(ctx, &api.GetEntryRequest{EntryID: id})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Entry, nil
}

func (s *GRPCClient) Rename(ctx context.Context, id, newName string, expectedVersion int64) (*api.Entry, error) {
	resp, err := s.client.Rename(ctx, &api.RenameRequest{EntryID: id, NewName: newName, ExpectedVersion: expectedVersion})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Entry, nil
}

func (s *GRPCClient) ListChildren(ctx context.Context, parentID string) ([]*api.Entry, error) {
	resp, err := s.client.ListChildren(ctx, &api.ListChildrenRequest{ParentID: parentID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Entries, nil
}

func (s *GRPCClient) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, &api.DeleteRequest{EntryID: id})
	return s.mapError(err)
}

func (s *GRPCClient) RequestUpload(ctx context.Context, filename, contentType string) (*api.Capability, string, error) {
	resp, err := s.client.RequestUpload(ctx, &api.RequestUploadRequest{Filename: filename, ContentType: contentType})
	if err != nil {
		return nil, "", s.mapError(err)
	}
	return resp.Capability, resp.Locator, nil
}

func (s *GRPCClient) FinalizeUpload(ctx context.Context, locator, filename string, size uint64, parentID string) (*api.Entry, error) {
	resp, err := s.client.FinalizeUpload(ctx, &api.FinalizeUploadRequest{
		Locator:  locator,
		Filename: filename,
		Size:     size,
		ParentID: parentID,
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Entry, nil
}

func (s *GRPCClient) RequestDownload(ctx context.Context, id string) (*api.Capability, error) {
	resp, err := s.client.RequestDownload(ctx, &api.RequestDownloadRequest{EntryID: id})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Capability, nil
}

func (s *GRPCClient) Usage(ctx context.Context) (*api.UsageResponse, error) {
	resp, err := s.client.Usage(ctx, &api.UsageRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}
