package models

import (
	"net/http"
	"time"
)

// Capability is a short-lived authorization that lets a client talk to the
// blob store directly. It is never persisted.
type Capability struct {
	Method    string
	URL       string
	Header    http.Header
	ExpiresAt time.Time
}

// Usage reports an owner's stored bytes against the quota ceiling.
type Usage struct {
	BytesUsed  uint64
	BytesLimit uint64
}
