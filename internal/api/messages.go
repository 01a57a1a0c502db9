// Package api declares the storage control-plane service shared by the
// server and the client: request and response messages, the gRPC service
// description and a typed client. Messages travel as CBOR using the codec
// registered under CodecName.
package api

import (
	"net/http"
	"time"
)

type Entry struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Size      uint64    `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Version   int64     `json:"version"`
}

// Capability lets the caller perform one request directly against the blob
// store: send Method to URL with Header until ExpiresAt.
type Capability struct {
	Method    string      `json:"method"`
	URL       string      `json:"url"`
	Header    http.Header `json:"header,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type EntryResponse struct {
	Entry *Entry `json:"entry"`
}

type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

type GetEntryRequest struct {
	EntryID string `json:"entry_id"`
}

type RenameRequest struct {
	EntryID string `json:"entry_id"`
	NewName string `json:"new_name"`
	// ExpectedVersion, when not zero, must match the stored version.
	ExpectedVersion int64 `json:"expected_version,omitempty"`
}

type ListChildrenRequest struct {
	ParentID string `json:"parent_id,omitempty"`
}

type ListChildrenResponse struct {
	Entries []*Entry `json:"entries"`
}

type DeleteRequest struct {
	EntryID string `json:"entry_id"`
}

type DeleteResponse struct{}

type RequestUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
}

type RequestUploadResponse struct {
	Capability *Capability `json:"capability"`
	Locator    string      `json:"locator"`
}

type FinalizeUploadRequest struct {
	Locator  string `json:"locator"`
	Filename string `json:"filename"`
	Size     uint64 `json:"size"`
	ParentID string `json:"parent_id,omitempty"`
}

type RequestDownloadRequest struct {
	EntryID string `json:"entry_id"`
}

type RequestDownloadResponse struct {
	Capability *Capability `json:"capability"`
}

type UsageRequest struct{}

type UsageResponse struct {
	BytesUsed  uint64 `json:"bytes_used"`
	BytesLimit uint64 `json:"bytes_limit"`
}
