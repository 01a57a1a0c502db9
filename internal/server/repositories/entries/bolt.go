package entries

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dmitrijs2005/cryptocloud/internal/codec"
	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"go.etcd.io/bbolt"
)

var (
	bucketEntries  = []byte("entries")
	bucketTree     = []byte("tree")
	bucketLocators = []byte("locators")
)

// InitBoltBuckets creates the buckets used by BoltRepository.
func InitBoltBuckets(tx *bbolt.Tx) error {
	for _, name := range [][]byte{bucketEntries, bucketTree, bucketLocators} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
		}
	}
	return nil
}

// BoltRepository implements Repository on top of bbolt.
//
// Entries live in the "entries" bucket keyed by id, CBOR-encoded. The "tree"
// bucket is an index keyed by owner, parent and id, each of the first two
// prefixed with its uvarint length, which serves both child listings and
// per-owner scans. "locators" maps each file locator to its entry id.
type BoltRepository struct {
	db *bbolt.DB
	tx *bbolt.Tx
}

func NewBoltRepository(db *bbolt.DB) *BoltRepository {
	return &BoltRepository{db: db}
}

// NewBoltTxRepository binds a repository to an open transaction. The
// transaction must be writable for mutations.
func NewBoltTxRepository(tx *bbolt.Tx) *BoltRepository {
	return &BoltRepository{tx: tx}
}

func (r *BoltRepository) view(fn func(tx *bbolt.Tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.db.View(fn)
}

func (r *BoltRepository) update(fn func(tx *bbolt.Tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.db.Update(fn)
}

// treePrefix length-prefixes every part, so no owner or parent id can be a
// prefix of another one whatever bytes it contains.
func treePrefix(parts ...string) []byte {
	var b []byte
	for _, p := range parts {
		b = binary.AppendUvarint(b, uint64(len(p)))
		b = append(b, p...)
	}
	return b
}

func treeKey(ownerID, parentID, id string) []byte {
	return append(treePrefix(ownerID, parentID), id...)
}

// treeKeyID returns the id part of a tree key.
func treeKeyID(key []byte) (string, error) {
	rest := key
	for range 2 {
		n, w := binary.Uvarint(rest)
		if w <= 0 || uint64(len(rest)-w) < n {
			return "", fmt.Errorf("boltstore: malformed index key %x", key)
		}
		rest = rest[w+int(n):]
	}
	return string(rest), nil
}

func loadEntry(tx *bbolt.Tx, id string) (*models.Entry, error) {
	raw := tx.Bucket(bucketEntries).Get([]byte(id))
	if raw == nil {
		return nil, common.ErrNotFound
	}
	var e models.Entry
	if err := codec.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("boltstore: decode entry %s: %w", id, err)
	}
	return &e, nil
}

func putEntry(tx *bbolt.Tx, e *models.Entry) error {
	raw, err := codec.Marshal(e)
	if err != nil {
		return fmt.Errorf("boltstore: encode entry %s: %w", e.ID, err)
	}
	return tx.Bucket(bucketEntries).Put([]byte(e.ID), raw)
}

func (r *BoltRepository) Create(_ context.Context, entry *models.Entry) error {
	return r.update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketEntries).Get([]byte(entry.ID)) != nil {
			return fmt.Errorf("%w: duplicate id", common.ErrInvalidReference)
		}
		if entry.Locator != "" {
			locators := tx.Bucket(bucketLocators)
			if locators.Get([]byte(entry.Locator)) != nil {
				return fmt.Errorf("%w: duplicate locator", common.ErrInvalidReference)
			}
			if err := locators.Put([]byte(entry.Locator), []byte(entry.ID)); err != nil {
				return err
			}
		}
		if err := putEntry(tx, entry); err != nil {
			return err
		}
		return tx.Bucket(bucketTree).Put(treeKey(entry.OwnerID, entry.ParentID, entry.ID), []byte{})
	})
}

func (r *BoltRepository) GetByID(_ context.Context, id string) (*models.Entry, error) {
	var e *models.Entry
	err := r.view(func(tx *bbolt.Tx) error {
		var err error
		e, err = loadEntry(tx, id)
		return err
	})
	return e, err
}

func (r *BoltRepository) UpdateName(_ context.Context, entry *models.Entry) error {
	return r.update(func(tx *bbolt.Tx) error {
		stored, err := loadEntry(tx, entry.ID)
		if err != nil {
			return common.ErrVersionConflict
		}
		if stored.OwnerID != entry.OwnerID || stored.Version != entry.Version {
			return common.ErrVersionConflict
		}
		stored.Name = entry.Name
		stored.Version++
		if err := putEntry(tx, stored); err != nil {
			return err
		}
		entry.Version = stored.Version
		return nil
	})
}

func (r *BoltRepository) ListChildren(_ context.Context, ownerID, parentID string) ([]*models.Entry, error) {
	var result []*models.Entry
	err := r.view(func(tx *bbolt.Tx) error {
		prefix := treePrefix(ownerID, parentID)
		c := tx.Bucket(bucketTree).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			e, err := loadEntry(tx, string(k[len(prefix):]))
			if err != nil {
				return err
			}
			result = append(result, e)
		}
		return nil
	})
	return result, err
}

func (r *BoltRepository) Delete(_ context.Context, ownerID, id string) error {
	return r.update(func(tx *bbolt.Tx) error {
		e, err := loadEntry(tx, id)
		if err != nil {
			return err
		}
		if e.OwnerID != ownerID {
			return common.ErrNotFound
		}
		if e.Locator != "" {
			if err := tx.Bucket(bucketLocators).Delete([]byte(e.Locator)); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketTree).Delete(treeKey(e.OwnerID, e.ParentID, e.ID)); err != nil {
			return err
		}
		return tx.Bucket(bucketEntries).Delete([]byte(id))
	})
}

func (r *BoltRepository) SumFileSizes(_ context.Context, ownerID string) (uint64, error) {
	var total uint64
	err := r.view(func(tx *bbolt.Tx) error {
		prefix := treePrefix(ownerID)
		c := tx.Bucket(bucketTree).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			id, err := treeKeyID(k)
			if err != nil {
				return err
			}
			e, err := loadEntry(tx, id)
			if err != nil {
				return err
			}
			if e.Kind == models.KindFile {
				// saturate rather than wrap
				if total > math.MaxUint64-e.Size {
					total = math.MaxUint64
				} else {
					total += e.Size
				}
			}
		}
		return nil
	})
	return total, err
}
