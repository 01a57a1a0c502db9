// Package common defines the sentinel errors and small helpers shared by the
// client and server layers of CryptoCloud. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Namespace errors. ErrNotFound is also returned when the entry exists
	// but belongs to another owner.
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid reference")
	ErrCycleDetected    = fmt.Errorf("%w: cycle detected in entry tree", ErrInvalidReference)
	ErrVersionConflict  = errors.New("version conflict")
	ErrValidation       = errors.New("validation error")

	// Envelope errors.
	ErrAuthenticationFailed = errors.New("envelope authentication failed")
	ErrMalformedEnvelope    = errors.New("malformed envelope")

	// Blob store errors.
	ErrStorageBackend = errors.New("storage backend error")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on outbound requests.
const AccessTokenHeaderName = "access_token"
