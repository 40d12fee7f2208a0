// Package tar implements archive.Engine using the POSIX tar format
// (stdlib archive/tar). It is the default bu_type="tar" backup/recover
// module.
package tar

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/araujobsd/ndmpd/internal/archive"
	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/pump"
)

// Engine streams a filesystem subtree to/from the MOVER pump in tar
// format. The root path to back up is taken from the DMA's FILESYSTEM
// environment variable on each Run.
type Engine struct{}

// New returns a tar Engine. It takes no configuration: bu_type-specific
// options arrive per call through Params.Env.
func New() archive.Engine { return &Engine{} }

func (e *Engine) Run(p archive.Params) error {
	root, _ := p.Env.Get("FILESYSTEM")
	if root == "" {
		return fmt.Errorf("tar: FILESYSTEM env var required")
	}

	stream := pump.NewStream(p.Session)
	switch p.Mode {
	case archive.ModeBackup:
		return e.backup(root, stream)
	case archive.ModeRecover:
		return e.recover(root, p.NList, stream)
	default:
		return fmt.Errorf("tar: unknown mode %d", p.Mode)
	}
}

func (e *Engine) backup(root string, w io.Writer) error {
	tw := tar.NewWriter(w)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("tar header for %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("tar write header %s: %w", path, err)
		}
		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return fmt.Errorf("copy %s: %w", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("tar close: %w", err)
	}
	if flusher, ok := w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// recover extracts only the entries named in nlist, writing each to its
// DestPath rather than its original location (its per-file
// rename semantics). Entries not named in nlist are skipped entirely.
func (e *Engine) recover(destRoot string, nlist []ndmp.NameListEntry, r io.Reader) error {
	wanted := make(map[string]string, len(nlist))
	for _, n := range nlist {
		wanted[n.OriginalPath] = n.DestPath
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar: read header: %w", err)
		}

		dest, ok := wanted[hdr.Name]
		if !ok {
			continue
		}
		target := filepath.Join(destRoot, dest)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return fmt.Errorf("tar: mkdir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return fmt.Errorf("tar: mkdir parent of %s: %w", target, err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return fmt.Errorf("tar: create %s: %w", target, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("tar: write %s: %w", target, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("tar: close %s: %w", target, err)
			}
		}
	}
}
