// Package models defines the server-side records persisted in the record
// store and the values handed to clients.
package models

import "time"

// Kind tells files and folders apart.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

func (k Kind) Valid() bool {
	return k == KindFile || k == KindFolder
}

// Entry is a node in an owner-scoped forest of files and folders.
//
// Every field is always present. ParentID is empty for root-level entries and
// Locator is empty for folders. Only Name and Version change after creation.
type Entry struct {
	ID        string    `cbor:"1,keyasint"`
	OwnerID   string    `cbor:"2,keyasint"`
	Name      string    `cbor:"3,keyasint"`
	Kind      Kind      `cbor:"4,keyasint"`
	ParentID  string    `cbor:"5,keyasint"`
	Size      uint64    `cbor:"6,keyasint"`
	Locator   string    `cbor:"7,keyasint"`
	CreatedAt time.Time `cbor:"8,keyasint"`
	// Version starts at 1 and is incremented by every mutation.
	Version int64 `cbor:"9,keyasint"`
}

func (e *Entry) IsFolder() bool { return e.Kind == KindFolder }

func (e *Entry) IsRoot() bool { return e.ParentID == "" }
