// Package grpc exposes the storage services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/cryptocloud/internal/api"
	"github.com/dmitrijs2005/cryptocloud/internal/logging"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// TreeManager is the part of services.TreeService the transport uses.
type TreeManager interface {
	CreateFolder(ctx context.Context, owner, name, parentID string) (*models.Entry, error)
	GetEntry(ctx context.Context, owner, id string) (*models.Entry, error)
	Rename(ctx context.Context, owner, id, newName string, expectedVersion int64) (*models.Entry, error)
	ListChildren(ctx context.Context, owner, parentID string) ([]*models.Entry, error)
	Delete(ctx context.Context, owner, id string) error
}

type TransferCoordinator interface {
	RequestUpload(ctx context.Context, owner, filename, contentType string) (*models.Capability, string, error)
	FinalizeUpload(ctx context.Context, owner, locator, filename string, size uint64, parentID string) (*models.Entry, error)
	RequestDownload(ctx context.Context, owner, id string) (*models.Capability, error)
}

type QuotaReporter interface {
	Usage(ctx context.Context, owner string) (*models.Usage, error)
}

type GRPCServer struct {
	address   string
	tree      TreeManager
	transfer  TransferCoordinator
	quota     QuotaReporter
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, tree TreeManager, transfer TransferCoordinator, quota QuotaReporter, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		tree:      tree,
		transfer:  transfer,
		quota:     quota,
		jwtSecret: []byte(secretKey),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	api.RegisterStorageServer(srv, s)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()
	defer close(stopped)

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
