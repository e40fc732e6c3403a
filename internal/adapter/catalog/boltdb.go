package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"amplie/internal/domain"
	"amplie/internal/port"
)

var (
	bucketItems    = []byte("items")
	bucketEmbedded = []byte("embedded")
	bucketMeta     = []byte("meta")
)

// ErrNotFound is returned when an item id is not in the catalog.
var ErrNotFound = errors.New("catalog item not found")

var _ port.CatalogStore = (*BoltStore)(nil)

// BoltStore keeps catalog items and a ledger of what has been embedded.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens (or creates) the catalog database at path.
func Open(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketItems, bucketEmbedded, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) PutItems(items []domain.CatalogItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketItems)
		for _, item := range items {
			if item.ID == "" {
				return errors.New("catalog item has empty id")
			}
			data, err := json.Marshal(item)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetItem(id string) (domain.CatalogItem, error) {
	var item domain.CatalogItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketItems).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &item)
	})
	return item, err
}

// ListItems returns every item ordered by id.
func (s *BoltStore) ListItems() ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			var item domain.CatalogItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("corrupt catalog item %s: %w", k, err)
			}
			items = append(items, item)
			return nil
		})
	})
	return items, err
}

func (s *BoltStore) DeleteItem(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketItems).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketEmbedded).Delete([]byte(id))
	})
}

func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketItems).Stats().KeyN
		return nil
	})
	return n, err
}

// PendingItems returns items that were never embedded or changed since.
func (s *BoltStore) PendingItems() ([]domain.CatalogItem, error) {
	fresh, changed, err := s.PendingChanges()
	if err != nil {
		return nil, err
	}
	return mergeByID(fresh, changed), nil
}

// PendingChanges splits pending items into those never embedded and those
// embedded before whose content changed. Changed items already exist in the
// vector store and must be overwritten, not added.
func (s *BoltStore) PendingChanges() (fresh, changed []domain.CatalogItem, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		ledger := tx.Bucket(bucketEmbedded)
		return tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			hash := ledger.Get(k)
			if string(hash) == contentHash(v) {
				return nil
			}
			var item domain.CatalogItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("corrupt catalog item %s: %w", k, err)
			}
			if hash == nil {
				fresh = append(fresh, item)
			} else {
				changed = append(changed, item)
			}
			return nil
		})
	})
	return fresh, changed, err
}

// mergeByID merges two id-ordered slices.
func mergeByID(a, b []domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		if a[0].ID < b[0].ID {
			out, a = append(out, a[0]), a[1:]
		} else {
			out, b = append(out, b[0]), b[1:]
		}
	}
	out = append(out, a...)
	return append(out, b...)
}

// MarkEmbedded records the current content of items as written.
func (s *BoltStore) MarkEmbedded(items []domain.CatalogItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		ledger := tx.Bucket(bucketEmbedded)
		for _, item := range items {
			data, err := json.Marshal(item)
			if err != nil {
				return err
			}
			if err := ledger.Put([]byte(item.ID), []byte(contentHash(data))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ResetLedger forgets what has been embedded so the next run writes everything.
func (s *BoltStore) ResetLedger() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEmbedded); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketEmbedded)
		return err
	})
}

func contentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
