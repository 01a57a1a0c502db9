// Package services implements the control-plane operations: the namespace
// tree manager, the transfer coordinator and the quota aggregator.
package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxNameLength is the longest accepted entry name, in bytes.
const MaxNameLength = 255

// BlobStore is the object-store collaborator. Implementations never see
// object bodies.
type BlobStore interface {
	PresignPut(ctx context.Context, locator, contentType string, expires time.Duration) (*models.Capability, error)
	PresignGet(ctx context.Context, locator, filename string, expires time.Duration) (*models.Capability, error)
	Delete(ctx context.Context, locator string) error
	Size(ctx context.Context, locator string) (uint64, error)
}

var nameChars = regexp.MustCompile(`^[^/\x00]+$`)

// validateName checks a display name: 1..255 bytes, no path separator or
// NUL, and not one of the relative path names.
func validateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Length(1, MaxNameLength),
		validation.Match(nameChars).Error("must not contain '/' or NUL"),
		validation.NotIn(".", "..").Error("must not be '.' or '..'"),
	)
	if err != nil {
		return fmt.Errorf("%w: name: %v", common.ErrValidation, err)
	}
	return nil
}

// validateSize rejects file sizes above math.MaxInt64, the largest value
// the Postgres BIGINT column holds.
func validateSize(size uint64) error {
	if size > math.MaxInt64 {
		return fmt.Errorf("%w: size %d exceeds %d", common.ErrValidation, size, int64(math.MaxInt64))
	}
	return nil
}

// requireOwner rejects owner ids that cannot be stored unambiguously: empty
// ones, and ids containing NUL or '/', the locator separator.
func requireOwner(owner string) error {
	if owner == "" {
		return common.ErrUnauthorized
	}
	if strings.ContainsAny(owner, "/\x00") {
		return fmt.Errorf("%w: malformed owner id", common.ErrUnauthorized)
	}
	return nil
}
