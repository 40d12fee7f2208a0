// Package catalog defines the file-history store the DATA subsystem
// records backup entries into so a later recover can resolve a DMA's
// name-list paths without re-reading the whole archive. NDMP normally
// leaves file history bookkeeping to the DMA, but nothing forbids the
// server from keeping its own index too, and doing so lets
// bu_type="tar"/"dump" resolve nlist paths locally.
package catalog

import (
	"context"
	"time"
)

// Entry is one file_history_add record: a path observed during backup,
// its stat metadata, and the backup it belongs to.
type Entry struct {
	BackupID string
	Path     string
	Node     uint64
	Size     uint64
	Mtime    time.Time
	IsDir    bool
}

// Store persists and queries Entry records across backups.
type Store interface {
	// Record appends file-history entries for an in-progress backup.
	Record(ctx context.Context, entries []Entry) error

	// Lookup resolves a path within a backup, for recover's name-list
	// validation before the archive worker even starts streaming.
	Lookup(ctx context.Context, backupID, path string) (Entry, bool, error)

	// Close releases the store's underlying connection/handle.
	Close() error
}
