// Package archive defines the archive worker contract the DATA state
// machine runs against: a pluggable Engine that serializes
// a backup to, or deserializes a recover from, the MOVER data stream,
// using the callbacks a real archive format module would use to report
// progress, log messages, and record file history.
package archive

import (
	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/session"
)

// Mode selects which direction an Engine runs.
type Mode int

const (
	ModeBackup Mode = iota
	ModeRecover
)

// Params is everything an Engine.Run call needs: the operation mode, the
// DMA-supplied environment and (for recover) name list, and the owning
// Session so the engine can reach the MOVER data connection and the
// reactor's dispatch() call (the worker must cede time
// to the reactor periodically rather than running the whole transfer
// without yielding).
type Params struct {
	Mode    Mode
	NList   []ndmp.NameListEntry
	Env     *session.Environment
	Session *session.Session
}

// Engine runs one backup or recover operation to completion. Run blocks
// the archive worker goroutine for the duration of the operation; it
// must not touch the control connection directly, only Session's
// exported, lock-guarded accessors.
type Engine interface {
	Run(p Params) error
}

// EngineFactory builds an Engine for a DMA-requested bu_type (e.g. "tar",
// "dump"). It is the extension point start_backup/start_recover use to
// pick the archive format module.
type EngineFactory func(butType string) (Engine, error)
