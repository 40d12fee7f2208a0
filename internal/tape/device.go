// Package tape defines the storage backend MOVER reads from and writes
// to. A real NDMP server drives a SCSI tape changer; this implementation
// targets virtual tape instead, so Device abstracts over a local file
// backend and an S3-backed one.
package tape

import "io"

// Device is the minimal operation set MOVER needs: sequential,
// record-aligned reads and writes plus absolute positioning for recover
// (its mover_set_window / seek semantics).
type Device interface {
	io.ReadWriteCloser

	// Seek repositions to an absolute byte offset, as tape devices
	// support only coarse (record-granularity) seeking in practice.
	Seek(offset int64) error

	// Flush ensures previously written records have been committed to
	// the backing medium. The pump calls it at the end of a backup,
	// before DATA halts with a SUCCESSFUL reason.
	Flush() error
}
