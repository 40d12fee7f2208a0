package ndmp

import (
	"bytes"
	"io"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmpxdr"
)

// EnvVar is one NDMP environment name/value pair. Names
// and values are ASCII on the wire; Go strings carry them directly.
type EnvVar struct {
	Name  string
	Value string
}

func encodeEnvList(buf *bytes.Buffer, env []EnvVar) error {
	if err := ndmpxdr.WriteUint32(buf, uint32(len(env))); err != nil {
		return err
	}
	for _, e := range env {
		if err := ndmpxdr.WriteXDRString(buf, e.Name); err != nil {
			return err
		}
		if err := ndmpxdr.WriteXDRString(buf, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func decodeEnvList(r io.Reader) ([]EnvVar, error) {
	n, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]EnvVar, 0, n)
	for i := uint32(0); i < n; i++ {
		name, err := ndmpxdr.DecodeString(r)
		if err != nil {
			return nil, err
		}
		value, err := ndmpxdr.DecodeString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, EnvVar{Name: name, Value: value})
	}
	return out, nil
}

// NameListEntry is one recover-selection entry. The original
// name (opaque per protocol version) and destination path are the two
// fields every version carries; V4 adds per-entry fs_type which this core
// passes through opaquely via FSType.
type NameListEntry struct {
	OriginalPath string
	DestPath     string
	FSType       string
}

func encodeNameList(buf *bytes.Buffer, nlist []NameListEntry) error {
	if err := ndmpxdr.WriteUint32(buf, uint32(len(nlist))); err != nil {
		return err
	}
	for _, n := range nlist {
		if err := ndmpxdr.WriteXDRString(buf, n.OriginalPath); err != nil {
			return err
		}
		if err := ndmpxdr.WriteXDRString(buf, n.DestPath); err != nil {
			return err
		}
		if err := ndmpxdr.WriteXDRString(buf, n.FSType); err != nil {
			return err
		}
	}
	return nil
}

func decodeNameList(r io.Reader) ([]NameListEntry, error) {
	n, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]NameListEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		orig, err := ndmpxdr.DecodeString(r)
		if err != nil {
			return nil, err
		}
		dest, err := ndmpxdr.DecodeString(r)
		if err != nil {
			return nil, err
		}
		fstype, err := ndmpxdr.DecodeString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, NameListEntry{OriginalPath: orig, DestPath: dest, FSType: fstype})
	}
	return out, nil
}
