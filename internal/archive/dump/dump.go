// Package dump implements archive.Engine for bu_type="dump": a simpler,
// flat per-file stream (unlike tar, no inter-file padding beyond MOVER's
// own record alignment) that precedes each file with a fixed xattr
// header (internal/archive/xattr), modeled on how traditional dump(8)
// implementations lay out extended attributes ahead of file data.
package dump

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/araujobsd/ndmpd/internal/archive"
	"github.com/araujobsd/ndmpd/internal/archive/xattr"
	"github.com/araujobsd/ndmpd/internal/pump"
)

// Engine streams a filesystem subtree in the flat dump shape.
type Engine struct{}

// New returns a dump Engine.
func New() archive.Engine { return &Engine{} }

func (e *Engine) Run(p archive.Params) error {
	root, _ := p.Env.Get("FILESYSTEM")
	if root == "" {
		return fmt.Errorf("dump: FILESYSTEM env var required")
	}
	stream := pump.NewStream(p.Session)
	if p.Mode != archive.ModeBackup {
		return fmt.Errorf("dump: recover not supported")
	}
	return e.backup(root, stream)
}

func (e *Engine) backup(root string, w io.Writer) error {
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if err := writeXattrHeader(w, rel, uint32(info.Size())); err != nil {
			return fmt.Errorf("dump: xattr header for %s: %w", path, err)
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("dump: open %s: %w", path, err)
		}
		defer f.Close()
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("dump: copy %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if flusher, ok := w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

func writeXattrHeader(w io.Writer, name string, size uint32) error {
	buf := make([]byte, xattr.HeaderSize+len(name))
	binary.BigEndian.PutUint32(buf[xattr.OffVersion:], xattr.Version)
	binary.BigEndian.PutUint32(buf[xattr.OffSize:], size)
	binary.BigEndian.PutUint32(buf[xattr.OffComponentLen:], uint32(len(name)))
	binary.BigEndian.PutUint32(buf[xattr.OffLinkComponentLen:], 0)
	binary.BigEndian.PutUint32(buf[xattr.OffNameSize:], uint32(len(name)))
	buf[xattr.OffTypeflag] = 0
	copy(buf[xattr.OffNames:], name)
	_, err := w.Write(buf)
	return err
}
