// Package badger implements catalog.Store over an embedded BadgerDB
// instance: thin View/Update transactions, JSON-encoded values,
// composite keys built from fixed prefixes plus the backup id and path.
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/araujobsd/ndmpd/internal/catalog"
)

// Store is a catalog.Store backed by an embedded BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a BadgerDB at dir.
func Open(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("catalog/badger: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func entryKey(backupID, path string) []byte {
	var b bytes.Buffer
	b.WriteString("fh:")
	b.WriteString(backupID)
	b.WriteByte(':')
	b.WriteString(path)
	return b.Bytes()
}

func (s *Store) Record(ctx context.Context, entries []catalog.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, e := range entries {
			val, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("catalog/badger: marshal entry %s: %w", e.Path, err)
			}
			if err := txn.Set(entryKey(e.BackupID, e.Path), val); err != nil {
				return fmt.Errorf("catalog/badger: set %s: %w", e.Path, err)
			}
		}
		return nil
	})
}

func (s *Store) Lookup(ctx context.Context, backupID, path string) (catalog.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Entry{}, false, err
	}
	var entry catalog.Entry
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(backupID, path))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return catalog.Entry{}, false, fmt.Errorf("catalog/badger: lookup %s: %w", path, err)
	}
	return entry, found, nil
}

func (s *Store) Close() error { return s.db.Close() }
