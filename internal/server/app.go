// Package server wires the control plane together: record store, blob
// store, services and the gRPC endpoint, and runs them until a shutdown
// signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/cryptocloud/internal/logging"
	"github.com/dmitrijs2005/cryptocloud/internal/server/blobstore"
	"github.com/dmitrijs2005/cryptocloud/internal/server/config"
	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cryptocloud/internal/server/services"

	gs "github.com/dmitrijs2005/cryptocloud/internal/server/grpc"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	repomanager     repomanager.RepositoryManager
	treeService     *services.TreeService
	transferService *services.TransferService
	quotaService    *services.QuotaService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	dsn := c.DatabaseDSN
	if c.StoreDriver == repomanager.DriverBolt {
		dsn = c.BoltPath
	}
	rm, err := repomanager.Open(ctx, c.StoreDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := blobstore.NewS3Store(ctx, blobstore.Options{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	tree := services.NewTreeService(rm, blobs, logger)
	transfer := services.NewTransferService(tree, blobs, logger, c.CapabilityExpiry, c.VerifyUploadSize)
	quota := services.NewQuotaService(rm, services.FlatQuota(c.QuotaLimitBytes))

	return &App{
		config:          c,
		logger:          logger,
		repomanager:     rm,
		treeService:     tree,
		transferService: transfer,
		quotaService:    quota,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger,
		app.treeService, app.transferService, app.quotaService, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or the
// gRPC server fails. The record store is closed on return.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"store", app.config.StoreDriver,
		"capability_expiry", app.config.CapabilityExpiry,
		"verify_upload_size", app.config.VerifyUploadSize)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "closing record store", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
