package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/logging"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"github.com/google/uuid"
)

// DefaultCapabilityExpiry applies when TransferService is built with a
// non-positive expiry.
const DefaultCapabilityExpiry = time.Hour

// TransferService hands out blob-store capabilities and turns confirmed
// uploads into file entries.
type TransferService struct {
	tree       *TreeService
	blobs      BlobStore
	log        logging.Logger
	expiry     time.Duration
	verifySize bool

	newToken func() string
}

// NewTransferService builds the coordinator. With verifySize set,
// FinalizeUpload compares the declared size with the stored object;
// otherwise the declared size is trusted.
func NewTransferService(tree *TreeService, blobs BlobStore, log logging.Logger, expiry time.Duration, verifySize bool) *TransferService {
	if expiry <= 0 {
		expiry = DefaultCapabilityExpiry
	}
	return &TransferService{
		tree:       tree,
		blobs:      blobs,
		log:        log.With("module", "transfer"),
		expiry:     expiry,
		verifySize: verifySize,
		newToken:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// Locator composes owner/token/filename.
func Locator(owner, token, filename string) string {
	return owner + "/" + token + "/" + filename
}

// RequestUpload reserves a fresh locator and returns a PUT capability for
// it. No entry is created.
func (s *TransferService) RequestUpload(ctx context.Context, owner, filename, contentType string) (*models.Capability, string, error) {
	if err := requireOwner(owner); err != nil {
		return nil, "", err
	}
	if err := validateName(filename); err != nil {
		return nil, "", err
	}

	locator := Locator(owner, s.newToken(), filename)
	capb, err := s.blobs.PresignPut(ctx, locator, contentType, s.expiry)
	if err != nil {
		return nil, "", err
	}

	s.log.Debug(ctx, "upload capability issued", "owner", owner, "locator", locator, "expires_at", capb.ExpiresAt)
	return capb, locator, nil
}

// FinalizeUpload records the uploaded object as a file entry.
func (s *TransferService) FinalizeUpload(ctx context.Context, owner, locator, filename string, size uint64, parentID string) (*models.Entry, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := checkLocator(owner, locator); err != nil {
		return nil, err
	}
	if err := validateSize(size); err != nil {
		return nil, err
	}

	if s.verifySize {
		stored, err := s.blobs.Size(ctx, locator)
		if err != nil {
			return nil, err
		}
		if stored != size {
			return nil, fmt.Errorf("%w: declared size %d, stored size %d", common.ErrInvalidReference, size, stored)
		}
	}

	e, err := s.tree.CreateFile(ctx, owner, filename, parentID, locator, size)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "upload finalized", "owner", owner, "id", e.ID, "size", size)
	return e, nil
}

// RequestDownload returns a GET capability for a file entry.
func (s *TransferService) RequestDownload(ctx context.Context, owner, id string) (*models.Capability, error) {
	e, err := s.tree.GetEntry(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if e.IsFolder() {
		return nil, fmt.Errorf("%w: %s is a folder", common.ErrInvalidReference, id)
	}
	return s.blobs.PresignGet(ctx, e.Locator, e.Name, s.expiry)
}

// checkLocator requires locator to have the owner/token/name shape and to
// belong to owner.
func checkLocator(owner, locator string) error {
	rest, ok := strings.CutPrefix(locator, owner+"/")
	if !ok {
		return fmt.Errorf("%w: locator does not belong to caller", common.ErrInvalidReference)
	}
	token, name, ok := strings.Cut(rest, "/")
	if !ok || token == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: malformed locator", common.ErrInvalidReference)
	}
	return nil
}
