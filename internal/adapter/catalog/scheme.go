package catalog

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the catalog storage format version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemeInfo = []byte("scheme_info")

// SchemeInfo records how the ledger's vectors were produced.
type SchemeInfo struct {
	Version    int    `json:"version"`
	Encoder    string `json:"encoder"`
	Collection string `json:"collection"`
}

// SchemeCheck describes whether previously embedded items are still valid.
type SchemeCheck struct {
	NeedsReembed bool
	Reason       string
}

func (s *BoltStore) GetSchemeInfo() (SchemeInfo, error) {
	var info SchemeInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemeInfo)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &info)
	})
	return info, err
}

func (s *BoltStore) SetSchemeInfo(info SchemeInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keySchemeInfo, data)
	})
}

// CheckScheme compares the stored scheme with want. A first run is not a
// re-embed, there is nothing to invalidate.
func (s *BoltStore) CheckScheme(want SchemeInfo) (SchemeCheck, error) {
	have, err := s.GetSchemeInfo()
	if err != nil {
		return SchemeCheck{}, fmt.Errorf("failed to read scheme info: %w", err)
	}

	switch {
	case have == (SchemeInfo{}):
		return SchemeCheck{}, nil
	case have.Version != want.Version:
		return SchemeCheck{NeedsReembed: true, Reason: fmt.Sprintf("catalog version changed from %d to %d", have.Version, want.Version)}, nil
	case have.Encoder != want.Encoder:
		return SchemeCheck{NeedsReembed: true, Reason: fmt.Sprintf("encoder changed from %s to %s", have.Encoder, want.Encoder)}, nil
	case have.Collection != want.Collection:
		return SchemeCheck{NeedsReembed: true, Reason: fmt.Sprintf("collection changed from %s to %s", have.Collection, want.Collection)}, nil
	}
	return SchemeCheck{}, nil
}
