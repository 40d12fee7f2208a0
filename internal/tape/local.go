package tape

import (
	"fmt"
	"os"
)

// LocalFile is a Device backed by a plain file, standing in for a
// physical tape drive's block device node.
type LocalFile struct {
	f *os.File
}

// OpenLocalFile opens path for read/write, creating it if absent.
func OpenLocalFile(path string) (*LocalFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return nil, fmt.Errorf("tape: open %s: %w", path, err)
	}
	return &LocalFile{f: f}, nil
}

func (l *LocalFile) Read(p []byte) (int, error)  { return l.f.Read(p) }
func (l *LocalFile) Write(p []byte) (int, error) { return l.f.Write(p) }
func (l *LocalFile) Close() error                { return l.f.Close() }

func (l *LocalFile) Seek(offset int64) error {
	_, err := l.f.Seek(offset, os.SEEK_SET)
	return err
}

func (l *LocalFile) Flush() error { return l.f.Sync() }
